package main

import (
	"testing"
)

func Test_application_preferences(t *testing.T) {
	ctx := t.Context()
	server := startTestServer(t)
	client := server.Client()

	t.Run("Redirects anonymous visitors home", func(t *testing.T) {
		doc, err := client.GetDoc(ctx, "/preferences")
		if err != nil {
			t.Fatalf("Failed to get document: %v", err)
		}
		// The redirect lands on the home page with its login form.
		if doc.Find("form[action='/api/login']").Length() != 1 {
			t.Error("Expected anonymous visitor to land on the login form")
		}
	})

	if _, err := client.Login(ctx, stubUsername, stubPassword); err != nil {
		t.Fatalf("Failed to login: %v", err)
	}

	t.Run("Shows defaults", func(t *testing.T) {
		doc, err := client.GetDoc(ctx, "/preferences")
		if err != nil {
			t.Fatalf("Failed to get document: %v", err)
		}
		value, exists := doc.Find("input#preferred_duration_minutes").Attr("value")
		if !exists || value != "30" {
			t.Errorf("Expected default duration 30, got %q", value)
		}
	})

	t.Run("Saves and redisplays", func(t *testing.T) {
		doc, err := client.GetDoc(ctx, "/preferences")
		if err != nil {
			t.Fatalf("Failed to get document: %v", err)
		}
		doc, err = client.SubmitForm(ctx, doc, "/preferences", map[string]string{
			"Preferred workout duration": "45",
			"Favorite instructors":       "Alex Toussaint",
			"Preferred intensity":        "intermediate",
		})
		if err != nil {
			t.Fatalf("Failed to submit form: %v", err)
		}
		if doc.Find("p:contains('Preferences saved.')").Length() != 1 {
			t.Error("Expected saved confirmation")
		}

		// The saved values survive a fresh page load.
		if doc, err = client.GetDoc(ctx, "/preferences"); err != nil {
			t.Fatalf("Failed to get document: %v", err)
		}
		value, _ := doc.Find("input#preferred_duration_minutes").Attr("value")
		if value != "45" {
			t.Errorf("Expected saved duration 45, got %q", value)
		}
		value, _ = doc.Find("input#preferred_intensity").Attr("value")
		if value != "intermediate" {
			t.Errorf("Expected saved intensity, got %q", value)
		}
	})

	t.Run("Rejects non-numeric duration", func(t *testing.T) {
		doc, err := client.GetDoc(ctx, "/preferences")
		if err != nil {
			t.Fatalf("Failed to get document: %v", err)
		}
		if _, err = client.SubmitForm(ctx, doc, "/preferences", map[string]string{
			"Preferred workout duration": "soon",
		}); err == nil {
			t.Error("Expected non-numeric duration to be rejected")
		}
	})
}
