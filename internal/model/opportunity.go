package model

// Pipeline is a GoHighLevel sales pipeline. Opportunities are listed and
// updated through their pipeline.
type Pipeline struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CustomField is one entry of an opportunity's customFields array. The v1
// API identifies fields by "id" in most responses but some payloads carry a
// "fieldKey"/"key" instead; values arrive as numbers or formatted strings.
type CustomField struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Opportunity is a CRM deal record. MonetaryValue is the field this service
// owns; the loan amount lives in a configured custom field and is read-only
// from our side.
type Opportunity struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	PipelineID    string        `json:"pipelineId"`
	StageID       string        `json:"pipelineStageId"`
	Status        string        `json:"status"`
	MonetaryValue *float64      `json:"monetaryValue"`
	CustomFields  []CustomField `json:"customFields"`
}
