package models

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

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Damage is one detected issue on the analyzed tree.
type Damage struct {
	Type            DamageType `json:"type"`
	Severity        Severity   `json:"severity"`
	Confidence      float64    `json:"confidence"`
	Description     string     `json:"description"`
	Recommendations []string   `json:"recommendations"`
}

// FileMetadata records byte sizes and dimensions of the original and
// normalized image, filled in by the worker.
type FileMetadata struct {
	OriginalSize    int64  `json:"original_size"`
	ProcessedSize   int64  `json:"processed_size"`
	OriginalWidth   int    `json:"original_width"`
	OriginalHeight  int    `json:"original_height"`
	ProcessedWidth  int    `json:"processed_width"`
	ProcessedHeight int    `json:"processed_height"`
	OriginalName    string `json:"original_name,omitempty"`
}

// AnalysisResult is the payload stored on a completed task. The worker
// serializes it into the tasks.result column as a single JSON blob.
type AnalysisResult struct {
	TreeType           TreeType      `json:"tree_type"`
	TreeTypeConfidence float64       `json:"tree_type_confidence"`
	DamagesDetected    []Damage      `json:"damages_detected"`
	OverallHealthScore float64       `json:"overall_health_score"`
	ModelVersion       string        `json:"model_version"`
	ProcessingTime     float64       `json:"processing_time"`
	Metadata           *FileMetadata `json:"metadata,omitempty"`
}
