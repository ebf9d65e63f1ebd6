package dto

type VerifyAllRequest struct {
	Type        string `json:"type"`
	NamePattern string `json:"name_pattern"`
}

type ImportKServeRequest struct {
	Namespace string `json:"namespace"`
}
