package models

// VariantStats counts upload progress for one document variant.
// Pending is always Total minus Uploaded; Failed counts records whose last
// attempt recorded an error, which can overlap Uploaded when a record
// succeeded after an earlier failure was cleared.
type VariantStats struct {
	Total    int64 `json:"total"`
	Uploaded int64 `json:"uploaded"`
	Pending  int64 `json:"pending"`
	Failed   int64 `json:"failed"`
}

// UploadStatistics summarizes upload progress across both variants,
// computed entirely from persisted state.
type UploadStatistics struct {
	Invoices VariantStats `json:"invoices"`
	Bills    VariantStats `json:"bills"`
	Overall  VariantStats `json:"overall"`
}
