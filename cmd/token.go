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
	"time"

	"github.com/Daskott/rightguard/server/auth"
	"github.com/Daskott/rightguard/server/auth/key"
	"github.com/spf13/cobra"
)

func createTokenCmd() *cobra.Command {
	var (
		userID string
		email  string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token signed with the configured private key",
		Long: `Issue an access token signed with rightguard.privateKeyPem.
The token is accepted by 'rightguard server' in the Authorization header
e.g. Authorization: Bearer <token>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			if config.RightGuard.PrivateKeyPem == "" {
				return formattedError("rightguard.privateKeyPem is required to issue tokens")
			}

			keyPair, err := key.NewKeyPairFromRSAPrivateKeyPem(config.RightGuard.PrivateKeyPem)
			if err != nil {
				return formattedError("invalid rightguard.privateKeyPem: %v", err)
			}

			token, err := auth.EncodeJWT(auth.NewClaims(userID, email, ttl), keyPair)
			if err != nil {
				return err
			}

			cmd.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "id of the user the token is issued to")
	cmd.Flags().StringVarP(&email, "email", "e", "", "email of the user the token is issued to")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "how long the token is valid for")
	cmd.MarkFlagRequired("user")

	return cmd
}
