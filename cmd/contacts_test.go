package cmd

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/Daskott/rightguard/server/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactsCmd(t *testing.T) {
	useTestConfig(t, "")

	cases := TestDataProvider{
		{
			description: "Should list nothing before any contact is added",
			args:        []string{"list"},
			expectedOut: "No emergency contacts yet",
		},
		{
			description: "Should fail to test alerts without contacts",
			args:        []string{"test"},
			expectedOut: "No emergency contacts to test",
		},
		{
			description: "Should NOT add contact with a short name",
			args:        []string{"add", "--name", "J", "--phone", "555-123-4567", "--relationship", "Sister"},
			expectedOut: validation.ErrName,
		},
		{
			description: "Should NOT add contact with an invalid phone",
			args:        []string{"add", "--name", "Jane Doe", "--phone", "123", "--relationship", "Sister"},
			expectedOut: validation.ErrPhone,
		},
		{
			description: "Should add contact",
			args:        []string{"add", "--name", "Jane Doe", "--phone", "555-123-4567", "--email", "jane@example.com", "--relationship", "Sister"},
			expectedOut: "added Jane Doe",
		},
		{
			description: "Should list added contact with a formatted phone number",
			args:        []string{"list"},
			expectedOut: "(555) 123-4567",
		},
		{
			description: "Should NOT add contact with a duplicate phone",
			args:        []string{"add", "--name", "John Doe", "--phone", "555-123-4567", "--relationship", "Brother"},
			expectedOut: validation.ErrDuplicatePhone,
		},
		{
			description: "Should count contacts",
			args:        []string{"stats"},
			expectedOut: "Total contacts:       1",
		},
		{
			description: "Should send test alerts to every contact",
			args:        []string{"test"},
			expectedOut: "1 of 1 contact(s) alerted",
		},
		{
			description: "Should NOT update a missing contact",
			args:        []string{"update", "missing", "--name", "Jane"},
			expectedOut: "not found",
		},
		{
			description: "Should require a contact id to remove",
			args:        []string{"remove"},
			expectedOut: "accepts 1 arg(s)",
		},
	}

	runCases(t, createContactsCmd, cases)
}

func TestContactsUpdateAndRemove(t *testing.T) {
	useTestConfig(t, "")
	buff := new(bytes.Buffer)

	out := execute(createContactsCmd(), buff, "add", "--name", "Jane Doe", "--phone", "555-123-4567", "--relationship", "Sister")
	matches := regexp.MustCompile(`\((local_[0-9a-f-]+)\)`).FindStringSubmatch(out)
	require.Len(t, matches, 2, out)
	contactID := matches[1]

	out = execute(createContactsCmd(), buff, "update", contactID, "--relationship", "Cousin")
	assert.Contains(t, out, "updated Jane Doe")

	out = execute(createContactsCmd(), buff, "list")
	assert.Contains(t, out, "Cousin")

	out = execute(createContactsCmd(), buff, "update", contactID, "--email", "not-an-email")
	assert.Contains(t, out, validation.ErrEmail)

	out = execute(createContactsCmd(), buff, "remove", contactID)
	assert.Contains(t, out, "removed "+contactID)

	out = execute(createContactsCmd(), buff, "list")
	assert.Contains(t, out, "No emergency contacts yet")
}
