package report

// SampleReports returns the demonstration reports written to an empty store
// on first run.
func SampleReports() []Report {
	return []Report{
		{
			ID: "RPT001",
			Patient: Patient{
				ID:        "P001",
				PatientID: "PAT-2024-001",
				Name:      "John Anderson",
				Age:       45,
				Gender:    GenderMale,
				Phone:     "+1234567890",
			},
			Tests: []TestGroup{{
				ID:       "TG001",
				TestType: "Complete Blood Count (CBC)",
				Price:    300,
				TestResults: []TestResult{
					{ID: "TR001", TestName: "Hemoglobin", Value: "14.2", Unit: "g/dL", NormalRange: "13.5-17.5", Flag: FlagNormal},
					{ID: "TR002", TestName: "WBC Count", Value: "11.5", Unit: "×10³/µL", NormalRange: "4.5-11.0", IsAbnormal: true, Flag: FlagHigh},
					{ID: "TR003", TestName: "Platelet Count", Value: "250", Unit: "×10³/µL", NormalRange: "150-400", Flag: FlagNormal},
					{ID: "TR004", TestName: "RBC Count", Value: "4.8", Unit: "×10⁶/µL", NormalRange: "4.5-5.5", Flag: FlagNormal},
				},
			}},
			Date:        "2024-01-15",
			Status:      StatusCompleted,
			CollectedBy: "Dr. Sarah Chen",
			VerifiedBy:  "Dr. Michael Roberts",
			TotalPrice:  300,
			CreatedAt:   "2024-01-15T09:30:00.000Z",
		},
		{
			ID: "RPT002",
			Patient: Patient{
				ID:        "P002",
				PatientID: "PAT-2024-002",
				Name:      "Emma Wilson",
				Age:       32,
				Gender:    GenderFemale,
				Phone:     "+1234567891",
			},
			Tests: []TestGroup{{
				ID:       "TG002",
				TestType: "Lipid Profile",
				Price:    800,
				TestResults: []TestResult{
					{ID: "TR005", TestName: "Total Cholesterol", Value: "220", Unit: "mg/dL", NormalRange: "<200", IsAbnormal: true, Flag: FlagHigh},
					{ID: "TR006", TestName: "HDL Cholesterol", Value: "45", Unit: "mg/dL", NormalRange: ">40", Flag: FlagNormal},
					{ID: "TR007", TestName: "LDL Cholesterol", Value: "140", Unit: "mg/dL", NormalRange: "<100", IsAbnormal: true, Flag: FlagHigh},
					{ID: "TR008", TestName: "Triglycerides", Value: "130", Unit: "mg/dL", NormalRange: "<150", Flag: FlagNormal},
				},
			}},
			Date:        "2024-01-20",
			Status:      StatusCompleted,
			CollectedBy: "Dr. Sarah Chen",
			TotalPrice:  800,
			CreatedAt:   "2024-01-20T11:15:00.000Z",
		},
	}
}
