package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"seatbooking/internal/models"
)

const brand = "Seat Booking"

type templateData struct {
	Booking     *models.Booking
	ConfirmLink string
	CancelLink  string
	Brand       string
}

// Content is the rendered form of one notification.
type Content struct {
	Subject string
	HTML    string
	Text    string
}

var subjects = map[models.NotificationKind]string{
	models.NotifyConfirmation: "Booking Confirmed",
	models.NotifyReminder:     "Are you coming?",
	models.NotifyTimeAlert:    "It's time for your booking",
	models.NotifyCancellation: "Booking Cancelled",
}

var emailTemplates = htmltemplate.Must(htmltemplate.New("email").Parse(`
{{define "confirmation"}}<h2>Hello {{.Booking.CustomerName}}</h2>
<p>Your booking has been successfully confirmed.</p>
<p><b>Date:</b> {{.Booking.BookingDate}}</p>
<p><b>Time Slot:</b> {{.Booking.TimeSlot}}</p>
<p><b>Seats:</b> {{.Booking.NumberOfSeats}}</p>
<p>- {{.Brand}} Team</p>{{end}}
{{define "reminder"}}<h2>Hello {{.Booking.CustomerName}}</h2>
<p>Your booking is in 10 minutes.</p>
<p><b>Time Slot:</b> {{.Booking.TimeSlot}}</p>
<p>Please confirm your arrival:</p>
<a href="{{.ConfirmLink}}" style="padding:10px 20px;background:#22c55e;color:white;text-decoration:none;border-radius:6px;">I'm coming</a>
<a href="{{.CancelLink}}" style="padding:10px 20px;background:#ef4444;color:white;text-decoration:none;border-radius:6px;margin-left:10px;">Can't make it</a>
<p>- {{.Brand}} Team</p>{{end}}
{{define "time_alert"}}<h2>Hi {{.Booking.CustomerName}}</h2>
<p>Your table is ready!</p>
<p><b>Slot:</b> {{.Booking.TimeSlot}}</p>
<p>Please arrive on time to avoid cancellation.</p>
<p>- {{.Brand}} Team</p>{{end}}
{{define "cancellation"}}<h2>Hello {{.Booking.CustomerName}}</h2>
<p>Your booking has been cancelled due to no arrival within 15 minutes.</p>
<p>Slot: {{.Booking.TimeSlot}}</p>
<p>- {{.Brand}} Team</p>{{end}}
`))

var smsTemplates = texttemplate.Must(texttemplate.New("sms").Parse(`
{{define "confirmation"}}Booking confirmed for {{.Booking.BookingDate}} {{.Booking.TimeSlot}}, {{.Booking.NumberOfSeats}} seat(s).{{end}}
{{define "reminder"}}Your booking at {{.Booking.TimeSlot}} starts in 10 minutes. Are you coming?
YES: {{.ConfirmLink}}
NO: {{.CancelLink}}{{end}}
{{define "time_alert"}}It's time for your {{.Booking.TimeSlot}} booking. Please reach the restaurant.{{end}}
{{define "cancellation"}}Your {{.Booking.TimeSlot}} booking was cancelled because nobody arrived within 15 minutes.{{end}}
`))

// Renderer builds message bodies with links back to the frontend.
type Renderer struct {
	frontendURL string
}

func NewRenderer(frontendURL string) *Renderer {
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}
	return &Renderer{frontendURL: strings.TrimRight(frontendURL, "/")}
}

func (r *Renderer) ConfirmLink(id string) string {
	return r.frontendURL + "/booking/confirm/" + id
}

func (r *Renderer) CancelLink(id string) string {
	return r.frontendURL + "/booking/cancel/" + id
}

func (r *Renderer) Render(kind models.NotificationKind, b *models.Booking) (Content, error) {
	subject, ok := subjects[kind]
	if !ok {
		return Content{}, fmt.Errorf("unknown notification kind %q", kind)
	}
	data := templateData{
		Booking:     b,
		ConfirmLink: r.ConfirmLink(b.ID),
		CancelLink:  r.CancelLink(b.ID),
		Brand:       brand,
	}

	var html, text bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&html, string(kind), data); err != nil {
		return Content{}, fmt.Errorf("render email %s: %w", kind, err)
	}
	if err := smsTemplates.ExecuteTemplate(&text, string(kind), data); err != nil {
		return Content{}, fmt.Errorf("render sms %s: %w", kind, err)
	}
	return Content{Subject: subject, HTML: html.String(), Text: text.String()}, nil
}
