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
	"text/tabwriter"
	"time"

	"github.com/Daskott/rightguard/colors"
	"github.com/Daskott/rightguard/server/models"
	"github.com/Daskott/rightguard/utils"
	"github.com/spf13/cobra"
)

func createIncidentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "incidents",
		Short: "Log & review police interactions",
	}

	cmd.AddCommand(
		createIncidentsLogCmd(),
		createIncidentsListCmd(),
		createIncidentsUpdateCmd(),
		createIncidentsRemoveCmd(),
		createIncidentsSummarizeCmd(),
	)

	return cmd
}

func createIncidentsLogCmd() *cobra.Command {
	var (
		input   models.IncidentInput
		officer map[string]string
		noAlert bool
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Log an incident and alert your emergency contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input.OfficerDetails = officerDetails(officer)

			return withDeviceSession(func(ds *deviceSession) error {
				var contacts []models.EmergencyContact
				if !noAlert {
					contacts = ds.Contacts.Contacts()
				}

				res := ds.Incidents.AddIncident(context.Background(), input, contacts)
				if err := printResult(cmd, res); err != nil {
					return err
				}

				cmd.Printf("%s logged incident %s\n", colors.Green("✔"), res.Data.ID)
				for _, result := range res.Data.AlertResults {
					cmd.Printf("  %s %s (%d channel(s))\n", colors.Status(result.SucceededChannels() > 0), result.ContactName, result.SucceededChannels())
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&input.InteractionSummary, "summary", "s", "", "what happened during the interaction")
	cmd.Flags().StringVarP(&input.Location, "location", "l", "", "where the interaction took place")
	cmd.Flags().StringVar(&input.RecordingURL, "recording-url", "", "link to a recording of the interaction")
	cmd.Flags().StringToStringVar(&officer, "officer", nil, "officer details e.g. --officer name=Smith,badge=1234")
	cmd.Flags().BoolVar(&noAlert, "no-alert", false, "log the incident without alerting emergency contacts")

	return cmd
}

func createIncidentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List logged incidents, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeviceSession(func(ds *deviceSession) error {
				incidents := ds.Incidents.Incidents()
				if len(incidents) == 0 {
					cmd.Println("No incidents logged")
					return nil
				}

				now := time.Now()
				w := tabwriter.NewWriter(cmd.OutOrStderr(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tWHEN\tLOCATION\tALERTED\tSUMMARY")
				for _, incident := range incidents {
					fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
						incident.ID,
						utils.TimeAgo(incident.Timestamp, now),
						incident.Location,
						incident.AlertSent,
						truncate(incident.InteractionSummary, 48))
				}
				return w.Flush()
			})
		},
	}
}

func createIncidentsUpdateCmd() *cobra.Command {
	var (
		location, summary, recordingURL string
		officer                         map[string]string
	)

	cmd := &cobra.Command{
		Use:   "update <incident-id>",
		Short: "Update a logged incident, only the flags given are changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update := models.IncidentUpdate{}
			if cmd.Flags().Changed("location") {
				update.Location = &location
			}
			if cmd.Flags().Changed("summary") {
				update.InteractionSummary = &summary
			}
			if cmd.Flags().Changed("recording-url") {
				update.RecordingURL = &recordingURL
			}
			if cmd.Flags().Changed("officer") {
				update.OfficerDetails = officerDetails(officer)
			}

			return withDeviceSession(func(ds *deviceSession) error {
				res := ds.Incidents.UpdateIncident(context.Background(), args[0], update)
				if err := printResult(cmd, res); err != nil {
					return err
				}

				cmd.Printf("%s updated incident %s\n", colors.Green("✔"), res.Data.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&summary, "summary", "s", "", "what happened during the interaction")
	cmd.Flags().StringVarP(&location, "location", "l", "", "where the interaction took place")
	cmd.Flags().StringVar(&recordingURL, "recording-url", "", "link to a recording of the interaction")
	cmd.Flags().StringToStringVar(&officer, "officer", nil, "officer details e.g. --officer name=Smith,badge=1234")

	return cmd
}

func createIncidentsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <incident-id>",
		Short: "Remove an incident from this device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeviceSession(func(ds *deviceSession) error {
				res := ds.Incidents.RemoveIncident(args[0])
				if err := printResult(cmd, res); err != nil {
					return err
				}

				cmd.Printf("%s removed incident %s\n", colors.Green("✔"), args[0])
				return nil
			})
		},
	}
}

func createIncidentsSummarizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <incident-id>",
		Short: "Generate a short summary of a logged incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeviceSession(func(ds *deviceSession) error {
				res := ds.Incidents.Summarize(context.Background(), args[0])
				if err := printResult(cmd, res); err != nil {
					return err
				}

				cmd.Println(res.Data.Summary)
				return nil
			})
		},
	}
}

func officerDetails(officer map[string]string) map[string]interface{} {
	if len(officer) == 0 {
		return nil
	}

	details := make(map[string]interface{}, len(officer))
	for key, value := range officer {
		details[key] = value
	}
	return details
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
