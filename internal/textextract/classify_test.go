package textextract

import (
	"reflect"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "discharge summary",
			text: "DISCHARGE SUMMARY\nPatient was admitted on 01/02 and discharged on 05/02.",
			want: []string{TagDischargeSummary},
		},
		{
			name: "lab report",
			text: "Laboratory Report. Hemoglobin 13.5 g/dL. Specimen: blood.",
			want: []string{TagLabReport},
		},
		{
			name: "imaging",
			text: "CT SCAN of the abdomen. IMPRESSION: no abnormality detected.",
			want: []string{TagImagingReport},
		},
		{
			name: "multiple tags ordered",
			text: "Consultation note. Rx: Tab. Paracetamol 500mg twice daily.",
			want: []string{TagPrescription, TagConsultation},
		},
		{
			name: "certificate",
			text: "This is to certify that the patient is fit to resume duties.",
			want: []string{TagMedicalCertificate},
		},
		{
			name: "inpatient",
			text: "Admission Note - Ward 3, Bed No 12, IPD No 4456",
			want: []string{TagInpatientRecord},
		},
		{
			name: "no match",
			text: "Completely unrelated grocery list: milk, eggs, bread.",
			want: nil,
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	upper := Classify("DISCHARGE SUMMARY")
	lower := Classify("discharge summary")
	if !reflect.DeepEqual(upper, lower) {
		t.Errorf("classification should be case-insensitive: %v vs %v", upper, lower)
	}
}

func TestJoinTags(t *testing.T) {
	if got := JoinTags([]string{TagLabReport, TagConsultation}); got != "Lab Report,Consultation" {
		t.Errorf("JoinTags = %q", got)
	}
	if got := JoinTags(nil); got != "" {
		t.Errorf("JoinTags(nil) = %q", got)
	}
}
