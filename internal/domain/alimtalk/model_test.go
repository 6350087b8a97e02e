package alimtalk

import (
	"strings"
	"testing"

	"groomdesk/internal/domain/appointment"
)

// TestTemplate_Render substitutes known placeholders only.
func TestTemplate_Render(t *testing.T) {
	tpl := Template{Kind: appointment.AlimtalkReservation, Body: "#{guardian}: #{pet} on #{date} #{time} (#{service}/#{staff}) #{unknown}"}
	a := appointment.Appointment{
		Date: "2024-03-01", StartTime: "10:00", Service: "Bath", StaffName: "Jisoo",
		Guardian: appointment.Guardian{Name: "Minji"},
		Pets:     []appointment.Pet{{Name: "Bori"}, {Name: "Choco"}},
	}
	got := tpl.Render(a)
	want := "Minji: Bori, Choco on 2024-03-01 10:00 (Bath/Jisoo) #{unknown}"
	if got != want {
		t.Fatalf("Render = %q, want %q", got, want)
	}
}

// TestTemplate_Validate tests template rules.
func TestTemplate_Validate(t *testing.T) {
	for _, d := range Defaults() {
		if err := d.Validate(); err != nil {
			t.Errorf("default %s invalid: %v", d.Kind, err)
		}
	}
	tests := []struct {
		tpl  Template
		want error
	}{
		{Template{Kind: appointment.AlimtalkNone, Body: "x"}, ErrInvalidKind},
		{Template{Kind: appointment.AlimtalkReminder, Body: " "}, ErrEmptyBody},
		{Template{Kind: appointment.AlimtalkReminder, Body: strings.Repeat("a", MaxBodyLength+1)}, ErrBodyTooLong},
		{Template{Kind: appointment.AlimtalkReminder, Body: "x", Title: strings.Repeat("a", MaxTitleLength+1)}, ErrTitleTooLong},
	}
	for _, tc := range tests {
		if err := tc.tpl.Validate(); err != tc.want {
			t.Errorf("Validate(%+v) = %v, want %v", tc.tpl.Kind, err, tc.want)
		}
	}
}

// TestFindByKind looks templates up by kind.
func TestFindByKind(t *testing.T) {
	if _, ok := FindByKind(Defaults(), appointment.AlimtalkDeposit); !ok {
		t.Fatal("expected deposit template")
	}
	if _, ok := FindByKind(Defaults(), appointment.AlimtalkNone); ok {
		t.Fatal("none has no template")
	}
}
