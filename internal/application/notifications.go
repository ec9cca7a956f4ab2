package application

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Email is a single outbound message.
type Email struct {
	FromName    string
	FromAddress string
	ToName      string
	ToAddress   string
	Subject     string
	PlainText   string
	HTML        string
}

// Mailer delivers outbound email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// NotifierSettings configures sender identities and date rendering.
type NotifierSettings struct {
	SenderAddress     string
	SenderName        string
	SystemSenderName  string
	ContactSenderName string
	AdminAddress      string
	Location          *time.Location
}

const (
	defaultSenderName        = "Diamond Salon Bookings"
	defaultSystemSenderName  = "Diamond Salon System"
	defaultContactSenderName = "Diamond Salon Contact Form"
)

// Notifier renders and sends booking and contact emails.
type Notifier struct {
	mailer   Mailer
	settings NotifierSettings
}

// NewNotifier validates the sender configuration and returns a Notifier.
func NewNotifier(mailer Mailer, settings NotifierSettings) (*Notifier, error) {
	if mailer == nil {
		return nil, NewError(KindConfiguration, "NewNotifier", "mailer not configured", nil)
	}
	if _, err := mail.ParseAddress(settings.SenderAddress); err != nil {
		return nil, NewError(KindConfiguration, "NewNotifier", "sender address is invalid", err)
	}
	if _, err := mail.ParseAddress(settings.AdminAddress); err != nil {
		return nil, NewError(KindConfiguration, "NewNotifier", "admin address is invalid", err)
	}
	if strings.TrimSpace(settings.SenderName) == "" {
		settings.SenderName = defaultSenderName
	}
	if strings.TrimSpace(settings.SystemSenderName) == "" {
		settings.SystemSenderName = defaultSystemSenderName
	}
	if strings.TrimSpace(settings.ContactSenderName) == "" {
		settings.ContactSenderName = defaultContactSenderName
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &Notifier{mailer: mailer, settings: settings}, nil
}

// NotifyBooking sends the customer confirmation and the admin notice
// concurrently. Both sends run to completion; the first failure is returned.
func (n *Notifier) NotifyBooking(ctx context.Context, booking Booking) error {
	customer, err := n.customerConfirmation(booking)
	if err != nil {
		return err
	}
	admin, err := n.adminBookingNotice(booking)
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.Go(func() error {
		if err := n.mailer.Send(ctx, customer); err != nil {
			return fmt.Errorf("customer confirmation to %s: %w", customer.ToAddress, err)
		}
		return nil
	})
	g.Go(func() error {
		if err := n.mailer.Send(ctx, admin); err != nil {
			return fmt.Errorf("admin notification: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// NotifyContact sends the admin notice for a contact form submission.
func (n *Notifier) NotifyContact(ctx context.Context, message ContactMessage) error {
	var body bytes.Buffer
	if err := contactAdminTemplate.Execute(&body, message); err != nil {
		return fmt.Errorf("render contact notification: %w", err)
	}
	email := Email{
		FromName:    n.settings.ContactSenderName,
		FromAddress: n.settings.SenderAddress,
		ToAddress:   n.settings.AdminAddress,
		Subject:     "New Contact Form Submission from " + message.Name,
		PlainText:   fmt.Sprintf("New contact form message from %s <%s>:\n\n%s\n\nMessage ID: %s", message.Name, message.Email, message.Message, message.ID),
		HTML:        body.String(),
	}
	return n.mailer.Send(ctx, email)
}

type bookingEmailData struct {
	Name            string
	Email           string
	Date            string
	Time            string
	DateTime        string
	Message         string
	Paid            bool
	PaymentIntentID string
	BookingID       string
}

func (n *Notifier) bookingData(booking Booking) bookingEmailData {
	local := booking.AppointmentAt.In(n.settings.Location)
	return bookingEmailData{
		Name:            booking.CustomerName,
		Email:           booking.CustomerEmail,
		Date:            local.Format("Monday, January 2, 2006"),
		Time:            local.Format("3:04 PM"),
		DateTime:        local.Format("January 2, 2006 3:04 PM MST"),
		Message:         booking.Message,
		Paid:            booking.Paid(),
		PaymentIntentID: booking.PaymentIntentID,
		BookingID:       booking.ID,
	}
}

func (n *Notifier) customerConfirmation(booking Booking) (Email, error) {
	data := n.bookingData(booking)
	var body bytes.Buffer
	if err := customerBookingTemplate.Execute(&body, data); err != nil {
		return Email{}, fmt.Errorf("render customer confirmation: %w", err)
	}
	return Email{
		FromName:    n.settings.SenderName,
		FromAddress: n.settings.SenderAddress,
		ToName:      booking.CustomerName,
		ToAddress:   booking.CustomerEmail,
		Subject:     "Your Booking Confirmation - " + booking.CustomerName,
		PlainText:   fmt.Sprintf("Hi %s,\n\nYour appointment is confirmed for %s at %s.\n\nThe Diamond Salon Team", data.Name, data.Date, data.Time),
		HTML:        body.String(),
	}, nil
}

func (n *Notifier) adminBookingNotice(booking Booking) (Email, error) {
	data := n.bookingData(booking)
	var body bytes.Buffer
	if err := adminBookingTemplate.Execute(&body, data); err != nil {
		return Email{}, fmt.Errorf("render admin notification: %w", err)
	}
	subject := "New Booking Received (Manual/Non-Paid): " + booking.CustomerName
	if data.Paid {
		subject = "[PAID] New Booking: " + booking.CustomerName
	}
	return Email{
		FromName:    n.settings.SystemSenderName,
		FromAddress: n.settings.SenderAddress,
		ToAddress:   n.settings.AdminAddress,
		Subject:     subject,
		PlainText:   fmt.Sprintf("New booking %s for %s <%s> on %s.", booking.ID, data.Name, data.Email, data.DateTime),
		HTML:        body.String(),
	}, nil
}

var customerBookingTemplate = template.Must(template.New("customer_booking").Parse(`<h1>Booking Confirmed!</h1>
<p>Hi {{.Name}},</p>
{{if .Paid}}<p>Thank you for your payment. Your appointment is confirmed:</p>
<p><strong>Date:</strong> {{.Date}}</p>
<p><strong>Time:</strong> {{.Time}}</p>
{{else}}<p>Thank you for booking your appointment with Diamond Salon.</p>
<p>Your appointment is scheduled for: <strong>{{.Date}} at {{.Time}}</strong></p>
{{end}}{{if .Message}}<p><strong>Your message:</strong> {{.Message}}</p>
{{end}}<p>We look forward to seeing you!</p>
<p>Thanks,<br/>The Diamond Salon Team</p>`))

var adminBookingTemplate = template.Must(template.New("admin_booking").Parse(`{{if .Paid}}<h1>New PAID Booking</h1>{{else}}<h1>New Booking Notification (Manual/Non-Paid)</h1>
<p>A new booking has been made:</p>{{end}}
<ul>
<li><strong>Name:</strong> {{.Name}}</li>
<li><strong>Email:</strong> {{.Email}}</li>
<li><strong>Date &amp; Time:</strong> {{.DateTime}}</li>
{{if .Message}}<li><strong>Client's Message:</strong> {{.Message}}</li>
{{end}}{{if .PaymentIntentID}}<li><strong>PI ID:</strong> {{.PaymentIntentID}}</li>
{{end}}<li><strong>Booking ID:</strong> {{.BookingID}}</li>
</ul>`))

var contactAdminTemplate = template.Must(template.New("contact_admin").Parse(`<h1>New Contact Form Message</h1>
<p>You have received a new message through the contact form:</p>
<ul>
<li><strong>Name:</strong> {{.Name}}</li>
<li><strong>Email:</strong> {{.Email}}</li>
{{if .Phone}}<li><strong>Phone:</strong> {{.Phone}}</li>
{{end}}<li><strong>Message:</strong></li>
</ul>
<p style="white-space: pre-wrap;">{{.Message}}</p>
<hr>
<p>Message ID in database: {{.ID}}</p>`))
