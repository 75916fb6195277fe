package report

import (
	"time"

	"github.com/pathoreport/pathoreport/internal/platform/hl7v2"
)

// HL7 renders r as an ORU^R01 result message.
func (r Report) HL7(now time.Time) []byte {
	res := hl7v2.Result{
		Patient: hl7v2.Patient{
			ID:     r.Patient.PatientID,
			Name:   r.Patient.Name,
			Gender: string(r.Patient.Gender),
			Phone:  r.Patient.Phone,
		},
		Status: hl7v2.StatusPreliminary,
	}
	if r.Status == StatusCompleted {
		res.Status = hl7v2.StatusFinal
	}
	if d, err := time.Parse(dateLayout, r.Date); err == nil {
		res.Collected = d
	}

	for _, g := range r.Tests {
		order := hl7v2.Order{PlacerID: r.ID, FillerID: g.ID, Name: g.TestType}
		for _, tr := range g.TestResults {
			flag := tr.Flag
			if flag == FlagNone {
				flag = Evaluate(tr.Value, tr.NormalRange)
			}
			obs := hl7v2.Observation{
				Name:  tr.TestName,
				Value: tr.Value,
				Unit:  tr.Unit,
				Range: tr.NormalRange,
				Flag:  hl7Flag(flag),
			}
			if tr.Value == PendingValue {
				obs.Value = ""
				obs.Status = hl7v2.StatusIncomplete
			}
			order.Observations = append(order.Observations, obs)
		}
		res.Orders = append(res.Orders, order)
	}
	return hl7v2.GenerateORU(res, now)
}

func hl7Flag(f Flag) string {
	switch f {
	case FlagHigh:
		return hl7v2.FlagHigh
	case FlagLow:
		return hl7v2.FlagLow
	case FlagNormal:
		return hl7v2.FlagNormal
	}
	return ""
}
