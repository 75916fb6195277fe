// Package hl7v2 renders laboratory results as HL7 v2.5.1 ORU^R01 messages.
package hl7v2

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Abnormal flags (OBX-8).
const (
	FlagHigh   = "H"
	FlagLow    = "L"
	FlagNormal = "N"
)

// Result statuses (OBR-25, OBX-11).
const (
	StatusFinal       = "F"
	StatusPreliminary = "P"
	StatusIncomplete  = "I"
)

// Patient is the PID subject of a result message.
type Patient struct {
	ID     string
	Name   string
	Gender string
	Phone  string
}

// Observation is one OBX line.
type Observation struct {
	Name  string
	Value string
	Unit  string
	Range string
	Flag  string
	// Status overrides the order status for this observation, for example
	// to mark a value that has not been collected yet.
	Status string
}

// Order is one OBR group and its observations.
type Order struct {
	PlacerID     string
	FillerID     string
	Name         string
	Observations []Observation
}

// Result is the content of an ORU^R01 message.
type Result struct {
	Patient   Patient
	Orders    []Order
	Collected time.Time
	Status    string
}

// GenerateORU generates an ORU (Observation Result) HL7v2 message. Segments
// are separated by carriage returns.
func GenerateORU(res Result, now time.Time) []byte {
	segments := []string{
		buildMSH("ORU", "R01", now),
		buildPID(res.Patient),
	}
	for i, o := range res.Orders {
		segments = append(segments, buildOBR(i+1, o, res))
		for j, obs := range o.Observations {
			segments = append(segments, buildOBX(j+1, obs, res.Status))
		}
	}
	return []byte(strings.Join(segments, "\r"))
}

// buildMSH constructs an MSH segment header for the given message type and trigger event.
func buildMSH(msgType, trigger string, now time.Time) string {
	now = now.UTC()
	timestamp := now.Format("20060102150405")
	controlID := fmt.Sprintf("MSG%s", now.Format("20060102150405.000"))

	return fmt.Sprintf("MSH|^~\\&|PATHOREPORT|LAB|||%s||%s^%s|%s|P|2.5.1",
		timestamp, msgType, trigger, controlID)
}

// buildPID constructs a PID segment. PID-3 carries the lab's patient
// identifier, PID-5 the name as a single family component.
func buildPID(p Patient) string {
	return fmt.Sprintf("PID|1||%s||%s|||%s|||||%s",
		escapeHL7(p.ID), escapeHL7(p.Name), mapGender(p.Gender), escapeHL7(p.Phone))
}

func buildOBR(setID int, o Order, res Result) string {
	collected := ""
	if !res.Collected.IsZero() {
		collected = res.Collected.UTC().Format("20060102")
	}
	fields := make([]string, 26)
	fields[0] = "OBR"
	fields[1] = strconv.Itoa(setID)
	fields[2] = escapeHL7(o.PlacerID)
	fields[3] = escapeHL7(o.FillerID)
	fields[4] = "^" + escapeHL7(o.Name)
	fields[7] = collected
	fields[25] = res.Status
	return strings.Join(fields, "|")
}

// buildOBX constructs an OBX segment. OBX-2 is NM for numeric values and ST
// otherwise; an empty value is sent without a type.
func buildOBX(setID int, obs Observation, status string) string {
	valueType := ""
	if obs.Value != "" {
		valueType = "ST"
		if _, err := strconv.ParseFloat(obs.Value, 64); err == nil {
			valueType = "NM"
		}
	}
	if obs.Status != "" {
		status = obs.Status
	}
	return fmt.Sprintf("OBX|%d|%s|^%s||%s|%s|%s|%s|||%s",
		setID, valueType, escapeHL7(obs.Name), escapeHL7(obs.Value),
		escapeHL7(obs.Unit), escapeHL7(obs.Range), obs.Flag, status)
}

// escapeHL7 escapes HL7 special characters in a string.
func escapeHL7(s string) string {
	// Escape backslash first to avoid double-escaping
	s = strings.ReplaceAll(s, "\\", "\\E\\")
	s = strings.ReplaceAll(s, "|", "\\F\\")
	s = strings.ReplaceAll(s, "^", "\\S\\")
	s = strings.ReplaceAll(s, "~", "\\R\\")
	s = strings.ReplaceAll(s, "&", "\\T\\")
	return s
}

func mapGender(gender string) string {
	switch strings.ToLower(gender) {
	case "male":
		return "M"
	case "female":
		return "F"
	case "other":
		return "O"
	default:
		return "U"
	}
}
