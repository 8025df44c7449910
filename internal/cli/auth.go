package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vutran/strum/internal/browser"
	strumerrors "github.com/vutran/strum/internal/errors"
	"github.com/vutran/strum/internal/spotify/auth"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Spotify authentication",
	Long:  `Commands for managing Spotify OAuth authentication.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with Spotify",
	Long:  `Opens a browser to authenticate with Spotify using the OAuth PKCE flow.`,
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored Spotify credentials",
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	RunE:  runAuthStatus,
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	spotifyClient, tokens, err := newClient()
	if err != nil {
		return err
	}

	flow := auth.NewFlow(cfg.Spotify.ClientID, cfg.Spotify.RedirectURI, tokens, func(url string) error {
		fmt.Println("Opening browser for Spotify authentication...")
		if err := browser.Open(url); err != nil {
			fmt.Println("Could not open browser automatically.")
			fmt.Printf("Please open this URL in your browser:\n\n%s\n\n", url)
		}
		return nil
	})

	// Fetching the profile after the exchange confirms the tokens work
	// end to end and primes the profile cache.
	flow.SetConfirm(func(ctx context.Context) error {
		_, err := spotifyClient.GetCurrentUser(ctx)
		return err
	})

	fmt.Println("Waiting for authentication...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := flow.Login(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	user, err := spotifyClient.GetCurrentUser(ctx)
	if err != nil {
		fmt.Println("Authentication successful! Tokens stored.")
		return nil
	}

	if JSONOutput() {
		output := map[string]interface{}{
			"status":       "authenticated",
			"user_id":      user.ID,
			"display_name": user.DisplayName,
			"email":        user.Email,
			"product":      user.Product,
		}
		_ = json.NewEncoder(os.Stdout).Encode(output)
	} else {
		fmt.Printf("Successfully authenticated as %s (%s)\n", user.DisplayName, user.Email)
	}

	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	_, tokens, err := newClient()
	if err != nil {
		return err
	}

	stored, err := tokens.Load()
	if err != nil {
		return fmt.Errorf("failed to read stored tokens: %w", err)
	}
	if stored == nil {
		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "not_authenticated"})
		} else {
			fmt.Println("Not authenticated with Spotify.")
		}
		return nil
	}

	if err := tokens.Clear(); err != nil {
		return fmt.Errorf("failed to remove tokens: %w", err)
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "logged_out"})
	} else {
		fmt.Println("Logged out of Spotify.")
	}

	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	spotifyClient, tokens, err := newClient()
	if err != nil {
		return err
	}

	stored, err := tokens.Load()
	if err != nil {
		return fmt.Errorf("failed to read stored tokens: %w", err)
	}
	if stored == nil {
		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]interface{}{"authenticated": false})
		} else {
			fmt.Println("Not authenticated with Spotify.")
			fmt.Println("Run 'strum auth login' to authenticate.")
		}
		return nil
	}

	ctx := context.Background()
	user, err := spotifyClient.GetCurrentUser(ctx)
	if err != nil {
		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
				"authenticated": true,
				"expired":       true,
				"error":         err.Error(),
			})
		} else {
			fmt.Printf("Token may be expired or invalid: %v\n", err)
			if s := strumerrors.GetSuggestion(err); s != "" {
				fmt.Println(s)
			}
		}
		return nil
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"authenticated": true,
			"expired":       stored.Expired(),
			"user_id":       user.ID,
			"display_name":  user.DisplayName,
			"email":         user.Email,
			"product":       user.Product,
			"expires_at":    stored.ExpiresAt,
		})
	} else {
		fmt.Printf("Authenticated as: %s (%s)\n", user.DisplayName, user.Email)
		fmt.Printf("Account type: %s\n", user.Product)
		fmt.Printf("Token expires: %s\n", stored.ExpiresAt.Format(time.RFC3339))
	}

	return nil
}
