package domain

import (
	"strconv"
	"time"
)

// CSVHeader is the column order of the case export.
var CSVHeader = []string{
	"id", "status", "receivedAt", "customerName", "customerContact",
	"manufacturer", "modelName", "modelNumber", "symptom", "outcome",
	"finalDecision", "shareAnonymously", "ageDays", "stalled",
	"stallThreshold", "stalledByDays", "attachmentsCount",
}

// CSVRecord renders v in CSVHeader order.
func CSVRecord(v CaseView) []string {
	outcome := ""
	if v.Outcome != nil {
		outcome = string(*v.Outcome)
	}
	decision := ""
	if v.FinalDecision != nil {
		decision = string(*v.FinalDecision)
	}
	return []string{
		v.ID,
		string(v.Status),
		v.ReceivedAt.UTC().Format(time.RFC3339),
		v.CustomerName,
		v.CustomerContact,
		v.Manufacturer,
		v.ModelName,
		v.ModelNumber,
		v.Symptom,
		outcome,
		decision,
		strconv.FormatBool(v.ShareAnonymously),
		strconv.Itoa(v.AgeDays),
		strconv.FormatBool(v.Stalled),
		strconv.Itoa(v.StallThreshold),
		strconv.Itoa(v.StalledByDays),
		strconv.FormatInt(v.AttachmentsCount, 10),
	}
}
