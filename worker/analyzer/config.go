package analyzer

import "time"

// Config tunes the mock result generator. Probabilities over tree types
// should sum to 1.0; damage weights are relative.
type Config struct {
	MinDelay time.Duration
	MaxDelay time.Duration

	TreeConfidenceMin   float64
	TreeConfidenceMax   float64
	DamageConfidenceMin float64
	DamageConfidenceMax float64

	TreeTypeProbabilities map[TreeType]float64
	DamageTypeWeights     map[DamageType]float64
	SeverityProbabilities map[string]float64

	// Index = number of damages, value = probability of that count.
	DamageCountProbabilities []float64

	HealthScoreModifiers map[string]float64

	ModelVersion string
}

func DefaultConfig() Config {
	return Config{
		MinDelay: 1 * time.Second,
		MaxDelay: 5 * time.Second,

		TreeConfidenceMin:   0.65,
		TreeConfidenceMax:   0.95,
		DamageConfidenceMin: 0.45,
		DamageConfidenceMax: 0.90,

		TreeTypeProbabilities: map[TreeType]float64{
			TreeOak:     0.25,
			TreePine:    0.20,
			TreeBirch:   0.15,
			TreeMaple:   0.15,
			TreeCherry:  0.10,
			TreeUnknown: 0.15,
		},

		DamageTypeWeights: map[DamageType]float64{
			DamageInsect:             0.20,
			DamageFungalInfection:    0.15,
			DamageBark:               0.18,
			DamageLeafDiscoloration:  0.12,
			DamageBranchBreakage:     0.10,
			DamageRoot:               0.08,
			DamageDroughtStress:      0.10,
			DamageNutrientDeficiency: 0.07,
		},

		SeverityProbabilities: map[string]float64{
			SeverityLow:    0.50,
			SeverityMedium: 0.35,
			SeverityHigh:   0.15,
		},

		DamageCountProbabilities: []float64{0.30, 0.35, 0.20, 0.10, 0.05},

		HealthScoreModifiers: map[string]float64{
			SeverityLow:    0.95,
			SeverityMedium: 0.85,
			SeverityHigh:   0.70,
		},

		ModelVersion: "mock_v2.0",
	}
}

var damageDescriptions = map[DamageType]string{
	DamageInsect:             "Signs of insect infestation detected",
	DamageFungalInfection:    "Fungal infection present on tree",
	DamageBark:               "Bark damage or wounds observed",
	DamageLeafDiscoloration:  "Unusual leaf discoloration detected",
	DamageBranchBreakage:     "Broken or damaged branches found",
	DamageRoot:               "Potential root system damage",
	DamageDroughtStress:      "Signs of drought stress visible",
	DamageNutrientDeficiency: "Nutrient deficiency symptoms detected",
}

var treatmentRecommendations = map[DamageType]map[string][]string{
	DamageInsect: {
		SeverityLow:    {"Monitor tree regularly", "Apply preventive treatment"},
		SeverityMedium: {"Apply insecticide treatment", "Remove affected branches"},
		SeverityHigh:   {"Immediate treatment required", "Consult arborist", "Consider tree removal if severe"},
	},
	DamageFungalInfection: {
		SeverityLow:    {"Improve air circulation", "Remove dead material"},
		SeverityMedium: {"Apply fungicide", "Prune affected areas"},
		SeverityHigh:   {"Immediate fungicide treatment", "Extensive pruning required", "Monitor closely"},
	},
	DamageBark: {
		SeverityLow:    {"Protect from further damage", "Apply wound dressing"},
		SeverityMedium: {"Clean and treat wounds", "Monitor for infection"},
		SeverityHigh:   {"Immediate wound treatment", "Protect from pests", "Consider professional help"},
	},
	DamageLeafDiscoloration: {
		SeverityLow:    {"Check soil conditions", "Adjust watering"},
		SeverityMedium: {"Soil testing recommended", "Fertilizer application"},
		SeverityHigh:   {"Immediate soil analysis", "Professional consultation needed"},
	},
	DamageBranchBreakage: {
		SeverityLow:    {"Prune broken branches", "Clean cuts properly"},
		SeverityMedium: {"Remove damaged branches", "Support remaining structure"},
		SeverityHigh:   {"Immediate pruning required", "Structural support needed", "Safety assessment"},
	},
	DamageRoot: {
		SeverityLow:    {"Improve drainage", "Avoid soil compaction"},
		SeverityMedium: {"Root zone treatment", "Mulching recommended"},
		SeverityHigh:   {"Immediate root care", "Professional assessment", "Consider tree removal"},
	},
	DamageDroughtStress: {
		SeverityLow:    {"Increase watering", "Apply mulch"},
		SeverityMedium: {"Deep watering schedule", "Soil moisture monitoring"},
		SeverityHigh:   {"Emergency watering", "Shade protection", "Professional irrigation"},
	},
	DamageNutrientDeficiency: {
		SeverityLow:    {"Soil testing", "Balanced fertilization"},
		SeverityMedium: {"Targeted nutrient application", "pH adjustment"},
		SeverityHigh:   {"Immediate nutrient treatment", "Soil amendment", "Professional consultation"},
	},
}
