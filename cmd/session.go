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
	"os"
	"strings"
	"unicode"

	"github.com/Daskott/rightguard/server"
	"github.com/Daskott/rightguard/server/logger"
	"github.com/Daskott/rightguard/server/models"
	"github.com/Daskott/rightguard/server/session"
	"github.com/spf13/cobra"
)

// deviceSession is the session the cli works in: the configured user's when
// user.id is set, otherwise this device's demo session.
type deviceSession struct {
	*session.Session
	components *server.Components
}

func openDeviceSession(ctx context.Context) (*deviceSession, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}

	rootDir := config.RightGuard.DataDir
	if rootDir == "" {
		rootDir = server.ConfigDirectory(isDevEnv)
	}

	components, err := server.NewComponents(ctx, config, rootDir, logger.New(config.Logging))
	if err != nil {
		return nil, err
	}

	if err := components.Workers.Start(); err != nil {
		components.Close()
		return nil, err
	}

	var sess *session.Session
	if config.User.ID != "" {
		sess, err = components.Registry.ForUser(ctx, config.User.ID)
	} else {
		sess, err = components.Registry.ForDevice(ctx, deviceID(config.User.DeviceID))
	}

	if err != nil {
		components.Close()
		return nil, err
	}

	return &deviceSession{Session: sess, components: components}, nil
}

func (ds *deviceSession) Close() {
	ds.components.Close()
}

// deviceID returns the configured device id, or one derived from the hostname
func deviceID(configured string) string {
	if configured != "" {
		return configured
	}

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "local"
	}
	return hostnameDeviceID(hostname)
}

// hostnameDeviceID maps hostname onto the characters a device id may hold
func hostnameDeviceID(hostname string) string {
	id := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-') {
			return r
		}
		return '-'
	}, hostname)

	if len(id) > 64 {
		id = id[:64]
	}
	if !session.ValidDeviceID(id) {
		return "local"
	}
	return id
}

// printResult prints res's warnings and returns its failure, if any, as an error.
// A remote_unavailable result is only a warning: the change was kept on this device.
func printResult[T any](cmd *cobra.Command, res models.Result[T]) error {
	for _, warning := range res.Warnings {
		cmd.Printf("%s %s\n", warningLabel, warning)
	}

	switch {
	case res.Success():
		return nil
	case res.Kind == models.RemoteUnavailable:
		cmd.Printf("%s %s\n", warningLabel, res.Err)
		return nil
	default:
		for _, msg := range res.Messages() {
			cmd.Printf("%s %s\n", red("Error:"), msg)
		}
		return formattedError("%s", res.Kind)
	}
}
