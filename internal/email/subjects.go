package email

const (
	subjectHotLeadFmt = "HOT lead: %s (%d/%d)"
	unnamedLead       = "unnamed lead"
)
