package textextract

import "strings"

// The fixed category tags.
const (
	TagDischargeSummary   = "Discharge Summary"
	TagLabReport          = "Lab Report"
	TagImagingReport      = "Imaging Report"
	TagPrescription       = "Prescription"
	TagMedicalCertificate = "Medical Certificate"
	TagInpatientRecord    = "Inpatient Record"
	TagConsultation       = "Consultation"
)

// tagKeywords maps each tag to the lowercase keywords that trigger it.
// Order is stable so tag output is deterministic.
var tagOrder = []string{
	TagDischargeSummary,
	TagLabReport,
	TagImagingReport,
	TagPrescription,
	TagMedicalCertificate,
	TagInpatientRecord,
	TagConsultation,
}

var tagKeywords = map[string][]string{
	TagDischargeSummary:   {"discharge summary", "date of discharge", "discharged on", "condition at discharge"},
	TagLabReport:          {"laboratory report", "lab report", "test results", "specimen", "haemoglobin", "hemoglobin", "pathology"},
	TagImagingReport:      {"x-ray", "xray", "ct scan", "mri", "ultrasound", "radiolog", "impression:"},
	TagPrescription:       {"rx", "prescription", "tab.", "cap.", "dosage", "twice daily", "once daily"},
	TagMedicalCertificate: {"medical certificate", "certify that", "fit to resume", "unfit for duty"},
	TagInpatientRecord:    {"admission note", "inpatient", "ward", "bed no", "ipd no"},
	TagConsultation:       {"consultation", "opd", "chief complaint", "referred by", "follow up"},
}

// Classify returns zero or more category tags for the text.
func Classify(text string) []string {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)

	var tags []string
	for _, tag := range tagOrder {
		for _, kw := range tagKeywords[tag] {
			if strings.Contains(lower, kw) {
				tags = append(tags, tag)
				break
			}
		}
	}
	return tags
}

// JoinTags renders tags the way they are persisted on the file row.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}
