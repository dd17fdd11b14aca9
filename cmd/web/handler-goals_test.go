package main

import (
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func Test_application_goals(t *testing.T) {
	ctx := t.Context()
	server := startTestServer(t)
	client := server.Client()

	if _, err := client.Login(ctx, stubUsername, stubPassword); err != nil {
		t.Fatalf("Failed to login: %v", err)
	}

	var doc *goquery.Document

	t.Run("Shows seeded goals", func(t *testing.T) {
		var err error
		doc, err = client.GetDoc(ctx, "/goals")
		if err != nil {
			t.Fatalf("Failed to get document: %v", err)
		}
		for _, name := range []string{"Build strength", "Improve endurance", "Stay flexible"} {
			if doc.Find("strong:contains('" + name + "')").Length() != 1 {
				t.Errorf("Expected seeded goal %q", name)
			}
		}
	})

	t.Run("Adds a goal", func(t *testing.T) {
		var err error
		doc, err = client.SubmitForm(ctx, doc, "/goals", map[string]string{
			"Name":        "Recover",
			"Description": "I want easy sessions after a race.",
			"Class types": "stretching",
		})
		if err != nil {
			t.Fatalf("Failed to submit form: %v", err)
		}
		if doc.Find("strong:contains('Recover')").Length() != 1 {
			t.Error("Expected new goal in the listing")
		}
	})

	t.Run("Deletes a goal", func(t *testing.T) {
		var err error
		doc, err = client.SubmitForm(ctx, doc, "/goals/Recover/delete", nil)
		if err != nil {
			t.Fatalf("Failed to submit form: %v", err)
		}
		if doc.Find("strong:contains('Recover')").Length() != 0 {
			t.Error("Expected deleted goal to disappear from the listing")
		}
	})

	t.Run("Rejects a goal without class types", func(t *testing.T) {
		if _, err := client.SubmitForm(ctx, doc, "/goals", map[string]string{
			"Name":        "Incomplete",
			"Description": "Missing class types.",
		}); err == nil {
			t.Error("Expected goal without class types to be rejected")
		}
	})
}
