//go:build e2e

package e2e

import (
	"strings"
	"testing"

	"github.com/playwright-community/playwright-go"
)

// Stripe test cards
const (
	cardSucceeds = "4242424242424242"
	cardDeclined = "4000000000000002"
)

// fillCard enters card details into the Payment Element iframe
func fillCard(t *testing.T, page playwright.Page, number string) {
	t.Helper()

	frame := page.FrameLocator("#payment-element iframe").First()
	fields := []struct {
		selector string
		value    string
	}{
		{"input[name='number']", number},
		{"input[name='expiry']", "12 / 34"},
		{"input[name='cvc']", "123"},
	}
	for _, f := range fields {
		if err := frame.Locator(f.selector).Fill(f.value); err != nil {
			t.Fatalf("Failed to fill %s: %v", f.selector, err)
		}
	}

	// Postal code is only requested for some countries
	postal := frame.Locator("input[name='postalCode']")
	if visible, _ := postal.IsVisible(); visible {
		if err := postal.Fill("10001"); err != nil {
			t.Fatalf("Failed to fill postal code: %v", err)
		}
	}
}

// TestPaymentSuccessfulFlow tests a complete successful payment
// Feature: Stripe Payment Element Checkout
//
//	Scenario: Pay with a valid card
//	  Given I am on the checkout page
//	  When I enter a valid test card and click Pay
//	  Then I should be redirected to the completion page
//	  And I should see a payment reference
func TestPaymentSuccessfulFlow(t *testing.T) {
	page := newPage(t)

	if _, err := page.Goto(baseURL + "/checkout"); err != nil {
		t.Fatalf("Failed to navigate to checkout page: %v", err)
	}
	waitForPayButton(t, page)

	fillCard(t, page, cardSucceeds)
	if err := page.Locator("#submit").Click(); err != nil {
		t.Fatalf("Failed to click Pay: %v", err)
	}

	if err := page.WaitForURL("**/payment/complete**", playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(30000),
	}); err != nil {
		t.Fatalf("Did not reach completion page: %v", err)
	}

	reference, err := page.Locator("#payment-reference").TextContent()
	if err != nil {
		t.Fatalf("Failed to find payment reference: %v", err)
	}
	if !strings.HasPrefix(reference, "PAY-") {
		t.Errorf("Expected reference to start with PAY-, got '%s'", reference)
	}

	status, err := page.Locator("#payment-status").TextContent()
	if err != nil {
		t.Fatalf("Failed to find payment status: %v", err)
	}
	if status != "succeeded" && status != "processing" {
		t.Errorf("Unexpected payment status '%s'", status)
	}
}

// TestPaymentDeclined tests that a declined card shows the provider message
//
//	Scenario: Pay with a declined card
//	  Given I am on the checkout page
//	  When I enter a card that will be declined and click Pay
//	  Then I should remain on the checkout page
//	  And I should see the decline message
func TestPaymentDeclined(t *testing.T) {
	page := newPage(t)

	if _, err := page.Goto(baseURL + "/checkout"); err != nil {
		t.Fatalf("Failed to navigate to checkout page: %v", err)
	}
	waitForPayButton(t, page)

	fillCard(t, page, cardDeclined)
	if err := page.Locator("#submit").Click(); err != nil {
		t.Fatalf("Failed to click Pay: %v", err)
	}

	errorMessage := page.Locator("#error-message")
	if err := errorMessage.WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(30000),
	}); err != nil {
		t.Fatalf("No decline message shown: %v", err)
	}

	text, err := errorMessage.TextContent()
	if err != nil {
		t.Fatalf("Failed to read error message: %v", err)
	}
	if !strings.Contains(strings.ToLower(text), "declined") {
		t.Errorf("Expected decline message, got '%s'", text)
	}
}
