package main

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func Test_application_home(t *testing.T) {
	var (
		ctx = t.Context()
		doc *goquery.Document
	)
	server := startTestServer(t)
	client := server.Client()

	t.Run("Initial state", func(t *testing.T) {
		var err error
		doc, err = client.GetDoc(ctx, "/")
		if err != nil {
			t.Fatalf("Failed to get document: %v", err)
		}

		checkButtonPresence(t, doc, "Log in", 1)
		checkButtonPresence(t, doc, "Log out", 0)
	})

	t.Run("Login with wrong password", func(t *testing.T) {
		_, err := client.Login(ctx, stubUsername, "wrong")
		if err == nil {
			t.Fatal("Expected login with wrong password to fail")
		}
		if !strings.Contains(err.Error(), "401") {
			t.Errorf("Expected 401 status in error, got: %v", err)
		}
	})

	t.Run("After login", func(t *testing.T) {
		var err error
		doc, err = client.Login(ctx, stubUsername, stubPassword)
		if err != nil {
			t.Fatalf("Failed to login: %v", err)
		}

		checkButtonPresence(t, doc, "Log in", 0)
		checkButtonPresence(t, doc, "Log out", 1)
		if doc.Find("h2:contains('Ask your trainer')").Length() != 1 {
			t.Error("Expected chat form heading after login")
		}
	})

	t.Run("After logout", func(t *testing.T) {
		var err error
		doc, err = client.Logout(ctx)
		if err != nil {
			t.Fatalf("Failed to logout: %v", err)
		}

		checkButtonPresence(t, doc, "Log in", 1)
		checkButtonPresence(t, doc, "Log out", 0)
	})
}

func checkButtonPresence(t *testing.T, doc *goquery.Document, buttonText string, expectedCount int) {
	t.Helper()
	count := doc.Find("button:contains('" + buttonText + "')").Length()
	if count != expectedCount {
		t.Errorf("Expected %d '%s' button(s), but found %d", expectedCount, buttonText, count)
	}
}

func Test_application_notFound(t *testing.T) {
	ctx := t.Context()
	server := startTestServer(t)

	resp, err := server.Client().Get(ctx, "/does-not-exist")
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != 404 {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
}
