package ai

import (
	"strings"

	"github.com/graphweave/graphweave/pkg/common"
)

// DefaultEntityTypes seeds the extraction prompt when the caller does
// not configure its own list.
var DefaultEntityTypes = []string{
	"PERSON", "ORGANIZATION", "LOCATION", "EVENT", "CONCEPT", "DATE",
}

const ExtractPrompt = `
# Task Context
You are tasked with extracting **structured entity and relationship information** from the provided text. Capture **all details explicitly present in the text**, without omission.

# Background Data
- **Entity_types:** [%s]

# Detailed Task Description & Rules

## Entity Extraction
1. Identify all entities of the specified types [%s].
2. For each entity, extract:
   - **entity_name:** The name of the entity, written in **ALL CAPITAL LETTERS**.
   - **entity_type:** One of the provided types [%s].
   - **entity_description:** A comprehensive description of all attributes, roles, activities, events, timelines, or other explicit details in the text. Do **not** omit any explicit information.

## Relationship Extraction
1. From the identified entities, determine all clear relationships between pairs of entities.
2. For each relationship, extract:
   - **source_entity:** name of the source entity.
   - **target_entity:** name of the target entity.
   - **relationship_type:** a short ALL-CAPS label for the relationship (e.g. WORKS_FOR, LOCATED_IN, PART_OF).
   - **relationship_description:** detailed explanation of how and why the entities are related, based strictly on the text.
   - **relationship_strength:** a numeric score (0.0-1.0) indicating the strength of the relationship (higher = stronger).
3. If the text describes no relationships between entities, return an **empty array** for "relationships".

# Output Formatting
Return a single JSON object with "entities" and "relationships" arrays matching the schema. Do not include any text outside the JSON object.

# Text
%s
`

// ExtractionResponse mirrors the JSON shape requested from the model.
type ExtractionResponse struct {
	Entities []struct {
		EntityName        string `json:"entity_name"`
		EntityType        string `json:"entity_type"`
		EntityDescription string `json:"entity_description"`
	} `json:"entities"`
	Relationships []struct {
		SourceEntity            string  `json:"source_entity"`
		TargetEntity            string  `json:"target_entity"`
		RelationshipType        string  `json:"relationship_type"`
		RelationshipDescription string  `json:"relationship_description"`
		RelationshipStrength    float64 `json:"relationship_strength"`
	} `json:"relationships"`
}

// ToCandidates converts the wire response into candidates, dropping
// entries without a usable name and clamping strengths into [0, 1].
func (r *ExtractionResponse) ToCandidates() ([]common.ExtractedEntity, []common.ExtractedRelationship) {
	entities := make([]common.ExtractedEntity, 0, len(r.Entities))
	for _, e := range r.Entities {
		title := strings.TrimSpace(e.EntityName)
		if title == "" {
			continue
		}
		entities = append(entities, common.ExtractedEntity{
			Title:       title,
			Type:        strings.TrimSpace(e.EntityType),
			Description: strings.TrimSpace(e.EntityDescription),
			Weight:      1.0,
		})
	}

	relationships := make([]common.ExtractedRelationship, 0, len(r.Relationships))
	for _, rel := range r.Relationships {
		source := strings.TrimSpace(rel.SourceEntity)
		target := strings.TrimSpace(rel.TargetEntity)
		if source == "" || target == "" {
			continue
		}
		weight := rel.RelationshipStrength
		if weight < 0 {
			weight = 0
		}
		if weight > 1 {
			weight = 1
		}
		relationships = append(relationships, common.ExtractedRelationship{
			SourceTitle: source,
			TargetTitle: target,
			Type:        strings.TrimSpace(rel.RelationshipType),
			Description: strings.TrimSpace(rel.RelationshipDescription),
			Weight:      weight,
		})
	}

	return entities, relationships
}
