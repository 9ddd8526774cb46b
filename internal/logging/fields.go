package logging

// Standardized attribute keys. Using constants keeps log queries stable
// across components.
const (
	FieldComponent = "component"
	FieldProjectID = "project_id"
	FieldEntityID  = "entity_id"
	FieldVariantID = "variant_id"
	FieldTaskID    = "task_id"
	FieldStage     = "stage"
	FieldKind      = "kind"
	FieldOperation = "operation"
	FieldDuration  = "duration"
	FieldBatchSize = "batch_size"
	FieldURL       = "url"
	FieldPath      = "path"
	FieldStatus    = "status"
)
