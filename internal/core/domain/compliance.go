package domain

// Regulatory frameworks a control is mapped to.
const (
	FrameworkEUAIAct  = "EU_AI_Act"
	FrameworkNISTRMF  = "NIST_RMF"
	FrameworkISO42001 = "ISO_42001"
)

// Evidence a snapshot can carry. Each compliance control lists the evidence
// that must be present for the control to count as satisfied.
const (
	EvidenceComponents       = "components[*].fingerprint"
	EvidenceSourceLocations  = "components[*].source_location"
	EvidenceLineageEdges     = "edges"
	EvidenceEvaluationEdges  = "edges[relation=evaluated-on]"
	EvidenceSignatures       = "signatures[valid]"
	EvidenceModelLicense     = "components[type=model].attributes.license"
	EvidenceVerificationLogs = "audit[action=VERIFY]"
)

// ComplianceControl maps one governance control onto the regulatory
// frameworks it addresses.
type ComplianceControl struct {
	Control    string            `json:"control" yaml:"control"`
	Frameworks map[string]string `json:"frameworks" yaml:"frameworks"`
	Evidence   []string          `json:"evidence" yaml:"evidence"`
}

// ComplianceMapping is the control catalogue served at /mappings and used to
// build per-snapshot reports.
var ComplianceMapping = []ComplianceControl{
	{
		Control: "Traceability/Lineage",
		Frameworks: map[string]string{
			FrameworkEUAIAct:  "Technical documentation & logs",
			FrameworkNISTRMF:  "Map (inventory)",
			FrameworkISO42001: "Lifecycle management",
		},
		Evidence: []string{EvidenceComponents, EvidenceSourceLocations, EvidenceLineageEdges},
	},
	{
		Control: "Risk management",
		Frameworks: map[string]string{
			FrameworkEUAIAct:  "Risk management system",
			FrameworkNISTRMF:  "Measure/Manage",
			FrameworkISO42001: "Risk assessments",
		},
		Evidence: []string{EvidenceEvaluationEdges},
	},
	{
		Control: "Human oversight",
		Frameworks: map[string]string{
			FrameworkEUAIAct:  "Human oversight",
			FrameworkNISTRMF:  "Govern",
			FrameworkISO42001: "Governance",
		},
		Evidence: []string{EvidenceSignatures},
	},
	{
		Control: "Transparency",
		Frameworks: map[string]string{
			FrameworkEUAIAct:  "Information to users",
			FrameworkNISTRMF:  "Map",
			FrameworkISO42001: "Transparency",
		},
		Evidence: []string{EvidenceModelLicense},
	},
	{
		Control: "Monitoring",
		Frameworks: map[string]string{
			FrameworkEUAIAct:  "Post-market monitoring",
			FrameworkNISTRMF:  "Manage",
			FrameworkISO42001: "Monitoring",
		},
		Evidence: []string{EvidenceVerificationLogs},
	},
}

type ControlResult struct {
	Control   string   `json:"control" yaml:"control"`
	Satisfied bool     `json:"satisfied" yaml:"satisfied"`
	Missing   []string `json:"missing,omitempty" yaml:"missing,omitempty"`
}

type ComplianceSummary struct {
	Satisfied int `json:"satisfied" yaml:"satisfied"`
	Total     int `json:"total" yaml:"total"`
}

// ComplianceReport scores one snapshot against ComplianceMapping.
type ComplianceReport struct {
	BomID   string            `json:"bom_id" yaml:"bom_id"`
	Summary ComplianceSummary `json:"summary" yaml:"summary"`
	Details []ControlResult   `json:"details" yaml:"details"`
}

// DeployCheck gates deployment of a snapshot: one that contains model
// components needs at least one valid signature.
type DeployCheck struct {
	BomID           string `json:"bom_id"`
	Intact          bool   `json:"intact"`
	HasModel        bool   `json:"has_model"`
	ValidSignatures int    `json:"valid_signatures"`
	Passed          bool   `json:"passed"`
	Reason          string `json:"reason,omitempty"`
}
