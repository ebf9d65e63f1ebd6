package domain

import (
	"time"
)

type ComponentType string

const (
	ComponentTypeModel   ComponentType = "model"
	ComponentTypeDataset ComponentType = "dataset"
	ComponentTypeCode    ComponentType = "code"
	ComponentTypeOther   ComponentType = "other"
)

func (t ComponentType) Valid() bool {
	switch t {
	case ComponentTypeModel, ComponentTypeDataset, ComponentTypeCode, ComponentTypeOther:
		return true
	}
	return false
}

// Component is an immutable registry record keyed by its content fingerprint.
type Component struct {
	Fingerprint    Fingerprint       `json:"fingerprint"`
	Name           string            `json:"name"`
	Type           ComponentType     `json:"type"`
	SizeBytes      int64             `json:"size_bytes"`
	SourceLocation string            `json:"source_location"`
	CreatedAt      time.Time         `json:"created_at"`
	Attributes     map[string]string `json:"attributes"`
}

// ComponentMetadata is the caller-supplied part of a registration.
type ComponentMetadata struct {
	Name           string            `validate:"required,max=512"`
	Type           ComponentType     `validate:"required,oneof=model dataset code other"`
	SizeBytes      int64             `validate:"gte=0"`
	SourceLocation string            `validate:"max=2048"`
	Attributes     map[string]string `validate:"max=64,dive,keys,required,max=128,endkeys,max=4096"`
}
