/*
Copyright © 2021 Edmond Cotterell

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/Daskott/rightguard/colors"
	"github.com/Daskott/rightguard/server/models"
	"github.com/Daskott/rightguard/server/validation"
	"github.com/Daskott/rightguard/utils"
	"github.com/spf13/cobra"
)

func createContactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage the emergency contacts alerted when you log an incident",
	}

	cmd.AddCommand(
		createContactsAddCmd(),
		createContactsListCmd(),
		createContactsUpdateCmd(),
		createContactsRemoveCmd(),
		createContactsStatsCmd(),
		createContactsTestCmd(),
	)

	return cmd
}

func contactFlags(cmd *cobra.Command, input *models.ContactInput) {
	cmd.Flags().StringVarP(&input.Name, "name", "n", "", "contact's name")
	cmd.Flags().StringVarP(&input.Phone, "phone", "p", "", "contact's phone number e.g. 555-123-4567")
	cmd.Flags().StringVarP(&input.Email, "email", "e", "", "contact's email address")
	cmd.Flags().StringVarP(&input.Relationship, "relationship", "r", "", "how you know the contact e.g. Sister")
}

func createContactsAddCmd() *cobra.Command {
	input := models.ContactInput{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an emergency contact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeviceSession(func(ds *deviceSession) error {
				res := ds.Contacts.AddContact(context.Background(), input)
				if err := printResult(cmd, res); err != nil {
					return err
				}

				cmd.Printf("%s added %s (%s)\n", colors.Green("✔"), res.Data.Name, res.Data.ID)
				return nil
			})
		},
	}

	contactFlags(cmd, &input)
	return cmd
}

func createContactsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your emergency contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeviceSession(func(ds *deviceSession) error {
				contacts := ds.Contacts.Contacts()
				if len(contacts) == 0 {
					cmd.Println("No emergency contacts yet. Add one with 'rightguard contacts add'")
					return nil
				}

				now := time.Now()
				w := tabwriter.NewWriter(cmd.OutOrStderr(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tPHONE\tEMAIL\tRELATIONSHIP\tADDED")
				for _, contact := range contacts {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						contact.ID,
						contact.Name,
						validation.FormatPhoneNumber(contact.Phone),
						contact.Email,
						contact.Relationship,
						utils.TimeAgo(contact.CreatedAt, now))
				}
				return w.Flush()
			})
		},
	}
}

func createContactsUpdateCmd() *cobra.Command {
	input := models.ContactInput{}

	cmd := &cobra.Command{
		Use:   "update <contact-id>",
		Short: "Update an emergency contact, only the flags given are changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update := models.ContactUpdate{}
			if cmd.Flags().Changed("name") {
				update.Name = &input.Name
			}
			if cmd.Flags().Changed("phone") {
				update.Phone = &input.Phone
			}
			if cmd.Flags().Changed("email") {
				update.Email = &input.Email
			}
			if cmd.Flags().Changed("relationship") {
				update.Relationship = &input.Relationship
			}

			return withDeviceSession(func(ds *deviceSession) error {
				res := ds.Contacts.UpdateContact(context.Background(), args[0], update)
				if err := printResult(cmd, res); err != nil {
					return err
				}

				cmd.Printf("%s updated %s\n", colors.Green("✔"), res.Data.Name)
				return nil
			})
		},
	}

	contactFlags(cmd, &input)
	return cmd
}

func createContactsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <contact-id>",
		Short: "Remove an emergency contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeviceSession(func(ds *deviceSession) error {
				res := ds.Contacts.RemoveContact(context.Background(), args[0])
				if err := printResult(cmd, res); err != nil {
					return err
				}

				cmd.Printf("%s removed %s\n", colors.Green("✔"), args[0])
				return nil
			})
		},
	}
}

func createContactsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarise your emergency contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeviceSession(func(ds *deviceSession) error {
				stats := ds.Contacts.Stats(time.Now())

				cmd.Printf("Total contacts:       %d\n", stats.Total)
				cmd.Printf("With phone:           %d\n", stats.WithPhone)
				cmd.Printf("With email:           %d\n", stats.WithEmail)
				cmd.Printf("Added in last 7 days: %d\n", stats.RecentlyAdded)

				relationships := make([]string, 0, len(stats.ByRelationship))
				for relationship := range stats.ByRelationship {
					relationships = append(relationships, relationship)
				}
				sort.Strings(relationships)

				for _, relationship := range relationships {
					cmd.Printf("  %s: %d\n", relationship, stats.ByRelationship[relationship])
				}
				return nil
			})
		},
	}
}

func createContactsTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Send a test alert to every emergency contact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeviceSession(func(ds *deviceSession) error {
				res := ds.Contacts.TestAlerts(context.Background())
				if err := printResult(cmd, res); err != nil {
					return err
				}

				printOutcome(cmd, res.Data)
				return nil
			})
		},
	}
}

func printOutcome(cmd *cobra.Command, outcome models.AlertOutcome) {
	for _, result := range outcome.Results {
		for _, attempt := range result.Attempts {
			detail := attempt.MessageID
			if !attempt.Success {
				detail = attempt.Error
			}
			cmd.Printf("%s %s via %s %s\n", colors.Status(attempt.Success), result.ContactName, attempt.Channel, detail)
		}
	}
	cmd.Printf("%d of %d contact(s) alerted\n", outcome.SuccessfulAlerts, outcome.TotalContacts)
}

func withDeviceSession(run func(ds *deviceSession) error) error {
	ds, err := openDeviceSession(context.Background())
	if err != nil {
		return err
	}
	defer ds.Close()

	return run(ds)
}
