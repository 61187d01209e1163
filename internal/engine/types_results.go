package engine

import (
	"time"

	"github.com/danieljhkim/appmigrate/internal/catalog"
	"github.com/danieljhkim/appmigrate/internal/planner"
)

// ScanResult represents the result of scanning a site.
type ScanResult struct {
	// Inventory is the scanned catalog
	Inventory *catalog.Inventory

	// Stats summarizes the inventory
	Stats catalog.Stats
}

// Status is the state of an execution.
type Status string

const (
	StatusPending         Status = "pending"
	StatusRunning         Status = "running"
	StatusCompleted       Status = "completed"
	StatusPartiallyFailed Status = "partially_failed"
)

// ChangeKind names the record a schema change touches.
type ChangeKind string

const (
	ChangeDocType        ChangeKind = "doctype"
	ChangeCustomField    ChangeKind = "custom_field"
	ChangePropertySetter ChangeKind = "property_setter"
)

// SchemaChange is one module reassignment.
type SchemaChange struct {
	DocType string     `json:"doctype" yaml:"doctype"`
	Kind    ChangeKind `json:"kind" yaml:"kind"`
	ID      string     `json:"id" yaml:"id"`
	Field   string     `json:"field" yaml:"field"`
	From    string     `json:"from" yaml:"from"`
	To      string     `json:"to" yaml:"to"`
	Applied bool       `json:"applied" yaml:"applied"`
}

// DataChange summarizes the data carried with one DocType.
type DataChange struct {
	DocType     string             `json:"doctype" yaml:"doctype"`
	Action      planner.DataAction `json:"action" yaml:"action"`
	RecordCount int                `json:"record_count" yaml:"record_count"`
	BatchSize   int                `json:"batch_size" yaml:"batch_size"`
	Batches     int                `json:"batches" yaml:"batches"`
}

// ExecutionSummary holds the counts of an execution.
type ExecutionSummary struct {
	TotalSteps    int `json:"total_steps" yaml:"total_steps"`
	Completed     int `json:"completed" yaml:"completed"`
	Failed        int `json:"failed" yaml:"failed"`
	Skipped       int `json:"skipped" yaml:"skipped"`
	SchemaChanges int `json:"schema_changes" yaml:"schema_changes"`
	Records       int `json:"records" yaml:"records"`
	Batches       int `json:"batches" yaml:"batches"`
}

// ExecutionReport is the append-only log of one plan execution.
type ExecutionReport struct {
	ExecutionID    string           `json:"execution_id" yaml:"execution_id"`
	PlanFile       string           `json:"plan_file" yaml:"plan_file"`
	PlanID         string           `json:"plan_id" yaml:"plan_id"`
	ExecutionStart time.Time        `json:"execution_start" yaml:"execution_start"`
	ExecutionEnd   time.Time        `json:"execution_end" yaml:"execution_end"`
	DryRun         bool             `json:"dry_run" yaml:"dry_run"`
	Success        bool             `json:"success" yaml:"success"`
	Status         Status           `json:"status" yaml:"status"`
	Backup         string           `json:"backup,omitempty" yaml:"backup,omitempty"`
	Summary        ExecutionSummary `json:"summary" yaml:"summary"`
	StepsCompleted []string         `json:"steps_completed" yaml:"steps_completed"`
	StepsFailed    []string         `json:"steps_failed" yaml:"steps_failed"`
	StepsSkipped   []string         `json:"steps_skipped" yaml:"steps_skipped"`
	SchemaChanges  []SchemaChange   `json:"schema_changes" yaml:"schema_changes"`
	DataChanges    []DataChange     `json:"data_changes" yaml:"data_changes"`
	Errors         []string         `json:"errors" yaml:"errors"`
	Warnings       []string         `json:"warnings" yaml:"warnings"`
}

func newExecutionReport() *ExecutionReport {
	return &ExecutionReport{
		Status:         StatusPending,
		StepsCompleted: []string{},
		StepsFailed:    []string{},
		StepsSkipped:   []string{},
		SchemaChanges:  []SchemaChange{},
		DataChanges:    []DataChange{},
		Errors:         []string{},
		Warnings:       []string{},
	}
}
