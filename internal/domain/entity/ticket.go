package entity

// PrintTicket is the option set as the print server reads it. One is written
// next to every document in its scope and travels with the upload.
type PrintTicket struct {
	Copies        int    `json:"copies"`
	ColorMode     string `json:"color_mode,omitempty"`
	PaperSize     string `json:"paper_size"`
	Orientation   string `json:"orientation"`
	Duplex        bool   `json:"duplex"`
	PageRanges    string `json:"page_ranges"`
	PagesPerSheet int    `json:"pages_per_sheet"`
	Border        string `json:"border"`
	Printer       string `json:"printer,omitempty"`
	Priority      int    `json:"priority"`
	Username      string `json:"username"`
	OrderID       string `json:"Order ID"`
	JobID         string `json:"jobId,omitempty"`
}

// Ticket renders o for the print server. Page selection is applied before
// dispatch, so the ticket always asks for every page of the document it travels with.
func (o PrintOptions) Ticket() PrintTicket {
	t := PrintTicket{
		Copies:        o.Copies,
		ColorMode:     string(o.ColorMode),
		PaperSize:     o.PaperSize,
		Orientation:   string(OrientationPortrait),
		Duplex:        o.Duplex,
		PageRanges:    AllPages,
		PagesPerSheet: o.PagesPerSheet,
		Border:        "none",
		Printer:       o.Printer,
		Priority:      o.Priority,
		Username:      o.Annotation.Username,
		OrderID:       o.Annotation.OrderID,
		JobID:         o.Annotation.JobID,
	}
	if o.Landscape {
		t.Orientation = string(OrientationLandscape)
	}
	if o.Border {
		t.Border = "single"
	}
	return t
}
