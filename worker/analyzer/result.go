package analyzer

type TreeType string

const (
	TreeOak     TreeType = "oak"
	TreePine    TreeType = "pine"
	TreeBirch   TreeType = "birch"
	TreeMaple   TreeType = "maple"
	TreeCherry  TreeType = "cherry"
	TreeUnknown TreeType = "unknown"
)

type DamageType string

const (
	DamageInsect             DamageType = "insect_damage"
	DamageFungalInfection    DamageType = "fungal_infection"
	DamageBark               DamageType = "bark_damage"
	DamageLeafDiscoloration  DamageType = "leaf_discoloration"
	DamageBranchBreakage     DamageType = "branch_breakage"
	DamageRoot               DamageType = "root_damage"
	DamageDroughtStress      DamageType = "drought_stress"
	DamageNutrientDeficiency DamageType = "nutrient_deficiency"
)

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

type Damage struct {
	Type            DamageType `json:"type"`
	Severity        string     `json:"severity"`
	Confidence      float64    `json:"confidence"`
	Description     string     `json:"description"`
	Recommendations []string   `json:"recommendations"`
}

// FileMetadata is filled in by the normalizer, not the analyzer; it
// rides along in the result blob. Field names match the API's view of
// the payload.
type FileMetadata struct {
	OriginalSize    int64  `json:"original_size"`
	ProcessedSize   int64  `json:"processed_size"`
	OriginalWidth   int    `json:"original_width"`
	OriginalHeight  int    `json:"original_height"`
	ProcessedWidth  int    `json:"processed_width"`
	ProcessedHeight int    `json:"processed_height"`
	OriginalName    string `json:"original_name,omitempty"`
}

type Result struct {
	TreeType           TreeType      `json:"tree_type"`
	TreeTypeConfidence float64       `json:"tree_type_confidence"`
	DamagesDetected    []Damage      `json:"damages_detected"`
	OverallHealthScore float64       `json:"overall_health_score"`
	ModelVersion       string        `json:"model_version"`
	ProcessingTime     float64       `json:"processing_time"`
	Metadata           *FileMetadata `json:"metadata,omitempty"`
}
