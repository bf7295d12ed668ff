package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	apiclient "github.com/donaldgifford/hotel-price-tracker/internal/api/client"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

const timeLayout = "2006-01-02 15:04:05"

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printBookingsTable(w io.Writer, bookings []domain.Booking) error {
	tw := newTabWriter(w)
	tw.writef("ID\tHOTEL\tCHECK-IN\tNIGHTS\tBOOKED\tCURRENT\tDROP\tSTATUS\n")
	for i := range bookings {
		b := &bookings[i]
		drop := "-"
		if b.PriceDropDetected && b.PriceDropAmount != nil {
			drop = b.PriceDropAmount.StringFixed(2)
		}
		tw.writef("%s\t%s\t%s\t%d\t%s %s\t%s\t%s\t%s\n",
			b.ID,
			truncate(b.HotelName, 30),
			b.CheckIn.Format(time.DateOnly),
			b.Nights(),
			b.ReferencePrice.StringFixed(2),
			b.Currency,
			b.CurrentPrice.StringFixed(2),
			drop,
			b.Status,
		)
	}
	return tw.finish()
}

func printBookingDetail(w io.Writer, b *domain.Booking) error {
	tw := newTabWriter(w)
	tw.writef("ID:\t%s\n", b.ID)
	tw.writef("User:\t%s\n", b.UserID)
	tw.writef("Hotel:\t%s\n", b.HotelName)
	tw.writef("Location:\t%s\n", b.Location)
	tw.writef("Stay:\t%s to %s (%d nights)\n",
		b.CheckIn.Format(time.DateOnly), b.CheckOut.Format(time.DateOnly), b.Nights())
	if b.Guests > 0 {
		tw.writef("Guests:\t%d\n", b.Guests)
	}
	tw.writef("Booked Price:\t%s %s\n", b.ReferencePrice.StringFixed(2), b.Currency)
	tw.writef("Current Price:\t%s %s\n", b.CurrentPrice.StringFixed(2), b.Currency)
	if b.PriceDropDetected && b.PriceDropAmount != nil {
		tw.writef("Price Drop:\t%s %s\n", b.PriceDropAmount.StringFixed(2), b.Currency)
	}
	tw.writef("Status:\t%s\n", b.Status)
	tw.writef("Last Checked:\t%s\n", formatOptionalTime(b.LastChecked))
	return tw.finish()
}

func printAlertsTable(w io.Writer, alerts []domain.PriceAlert) error {
	tw := newTabWriter(w)
	tw.writef("ID\tHOTEL\tBOOKED\tNOW\tSAVING\tSEVERITY\tSTATUS\tTRIGGERED\n")
	for i := range alerts {
		a := &alerts[i]
		tw.writef("%s\t%s\t%s\t%s\t%s (%s%%)\t%s\t%s\t%s\n",
			a.ID,
			truncate(a.HotelName, 30),
			a.BookedPrice.StringFixed(2),
			a.CurrentPrice.StringFixed(2),
			a.DeltaAmount.StringFixed(2),
			a.DeltaPercent.StringFixed(1),
			a.Severity,
			a.Status,
			a.TriggeredAt.Format(timeLayout),
		)
	}
	return tw.finish()
}

func printAlertDetail(w io.Writer, a *domain.PriceAlert) error {
	tw := newTabWriter(w)
	tw.writef("ID:\t%s\n", a.ID)
	tw.writef("Booking:\t%s\n", a.BookingID)
	tw.writef("Hotel:\t%s\n", a.HotelName)
	tw.writef("Status:\t%s\n", a.Status)
	tw.writef("Actioned At:\t%s\n", formatOptionalTime(a.ActionedAt))
	return tw.finish()
}

func printSettings(w io.Writer, s *domain.AlertSetting) error {
	tw := newTabWriter(w)
	tw.writef("User:\t%s\n", s.UserID)
	tw.writef("Min Drop Amount:\t%s\n", s.MinDropAmount.String())
	tw.writef("Min Drop Percent:\t%s%%\n", s.MinDropPercent.String())
	tw.writef("Channels:\t%s\n", joinOrDash(channelNames(s)))
	tw.writef("Frequency:\t%s\n", s.Frequency)
	quiet := "-"
	if s.QuietHoursStart != nil && s.QuietHoursEnd != nil {
		quiet = *s.QuietHoursStart + "-" + *s.QuietHoursEnd
	}
	tw.writef("Quiet Hours:\t%s\n", quiet)
	tz := s.Timezone
	if tz == "" {
		tz = "UTC"
	}
	tw.writef("Timezone:\t%s\n", tz)
	tw.writef("Excluded Providers:\t%s\n", joinOrDash(s.ExcludedProviders))
	tw.writef("Included Locations:\t%s\n", joinOrDash(s.IncludedLocations))
	return tw.finish()
}

func printQuota(w io.Writer, q *apiclient.Quota) error {
	tw := newTabWriter(w)
	limit := "unlimited"
	if q.DailyLimit > 0 {
		limit = fmt.Sprintf("%d", q.DailyLimit)
	}
	tw.writef("Daily Limit:\t%s\n", limit)
	tw.writef("Used:\t%d\n", q.DailyUsed)
	if q.Remaining >= 0 {
		tw.writef("Remaining:\t%d\n", q.Remaining)
	}
	if !q.ResetAt.IsZero() {
		tw.writef("Resets At:\t%s\n", q.ResetAt.Format(timeLayout))
	}
	return tw.finish()
}

func printJobsTable(w io.Writer, jobs []domain.JobStatus) error {
	tw := newTabWriter(w)
	tw.writef("JOB\tSCHEDULED\tNEXT RUN\tLAST STATUS\tLAST STARTED\n")
	for i := range jobs {
		j := &jobs[i]
		status, started := "-", "-"
		if j.LastRun != nil {
			status = j.LastRun.Status
			started = j.LastRun.StartedAt.Format(timeLayout)
		}
		tw.writef("%s\t%t\t%s\t%s\t%s\n",
			j.Name,
			j.Scheduled,
			formatOptionalTime(j.NextRun),
			status,
			started,
		)
	}
	return tw.finish()
}

func printJobRunsTable(w io.Writer, runs []domain.JobRun) error {
	tw := newTabWriter(w)
	tw.writef("JOB\tSTATUS\tSTARTED\tCOMPLETED\tROWS\tERROR\n")
	for i := range runs {
		r := &runs[i]
		rows := "-"
		if r.RowsAffected != nil {
			rows = fmt.Sprintf("%d", *r.RowsAffected)
		}
		tw.writef("%s\t%s\t%s\t%s\t%s\t%s\n",
			r.JobName,
			r.Status,
			r.StartedAt.Format(timeLayout),
			formatOptionalTime(r.CompletedAt),
			rows,
			truncate(r.ErrorText, 40),
		)
	}
	return tw.finish()
}

func channelNames(s *domain.AlertSetting) []string {
	var names []string
	if s.EmailEnabled {
		names = append(names, string(domain.ChannelEmail))
	}
	if s.PushEnabled {
		names = append(names, string(domain.ChannelPush))
	}
	if s.SMSEnabled {
		names = append(names, string(domain.ChannelSMS))
	}
	return names
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(timeLayout)
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}


func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
