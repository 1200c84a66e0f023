package models

import "time"

// Setting is a process-wide configuration row keyed by name. Created on first
// save, updated in place thereafter.
type Setting struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Setting keys.
const (
	SettingRevenueFolder = "revenue_folder"
	SettingPayableFolder = "payable_folder"
	SettingOpenAIAPIKey  = "openai_api_key"
	SettingOCRLanguage   = "ocr_language"
)

const DefaultOCRLanguage = "deu"

// Settings is the decoded settings snapshot read at the start of each scan
// cycle. The API key is stored encrypted; this struct carries it as stored.
type Settings struct {
	RevenueFolder *string `json:"revenue_folder"`
	PayableFolder *string `json:"payable_folder"`
	OpenAIAPIKey  *string `json:"openai_api_key"`
	OCRLanguage   string  `json:"ocr_language"`
}
