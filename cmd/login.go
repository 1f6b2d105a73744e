package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bnema/zalo-accounts/internal/domain"
)

const cliOrigin = "cli"

var errLoginFailed = errors.New("login failed")

func newLoginCmd(state *cliState) *cobra.Command {
	var qrFile string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in one account by QR code and print its identity",
		Long:  "login runs a single QR login against the gateway in this process. The QR is drawn in the terminal when the gateway provides its payload, otherwise the PNG is written to --qr-file.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(state.cfg, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runQRLogin(ctx, cmd, app, qrFile)
		},
	}

	cmd.Flags().StringVar(&qrFile, "qr-file", filepath.Join(os.TempDir(), "za-login.png"), "Where to write the QR PNG when it cannot be drawn in the terminal")

	return cmd
}

func runQRLogin(ctx context.Context, cmd *cobra.Command, app *app, qrFile string) error {
	qrReady := make(chan string, 1)
	terminal := make(chan domain.Event, 1)

	unsubscribe := app.bus.Subscribe(func(e domain.Event) {
		if e.Origin != cliOrigin {
			return
		}
		switch e.Kind {
		case domain.EventQRReady:
			select {
			case qrReady <- e.TempID:
			default:
			}
		case domain.EventQRExpired:
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "QR code expired.")
		case domain.EventLoginSuccess, domain.EventLoginFailure:
			select {
			case terminal <- e:
			default:
			}
		}
	})
	defer unsubscribe()

	tempID, err := app.logins.InitiateLogin(ctx, cliOrigin)
	if err != nil {
		return fmt.Errorf("initiate login: %w", err)
	}

	var result domain.Event
	select {
	case <-ctx.Done():
		return ctx.Err()
	case result = <-terminal:
	case id := <-qrReady:
		err := showQR(ctx, cmd, app, id, qrFile)
		switch {
		case errors.Is(err, domain.ErrLoginSessionNotFound):
			// The attempt ended before the QR could be read back.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case result = <-terminal:
			}
		case err != nil:
			return err
		default:
			err = runSpinner(ctx, cmd.ErrOrStderr(), spinnerTask{
				Label: "Waiting for the QR code to be scanned...",
				Done:  "QR code scanned.",
				Run: func(ctx context.Context) error {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case result = <-terminal:
						return loginOutcome(tempID, result)
					}
				},
			})
			if err != nil {
				return err
			}
		}
	}

	if err := loginOutcome(tempID, result); err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged in %s (%s)\n", result.Account.DisplayName, result.Account.ID)
	return err
}

func loginOutcome(tempID string, result domain.Event) error {
	if result.Kind != domain.EventLoginSuccess || result.Account == nil {
		return fmt.Errorf("%w (%s): %s", errLoginFailed, tempID, result.Reason)
	}
	return nil
}

func showQR(ctx context.Context, cmd *cobra.Command, app *app, tempID, qrFile string) error {
	payload, err := app.logins.QRPayload(ctx, tempID)
	if err != nil {
		return err
	}
	if payload != "" {
		art, err := app.qr.Terminal(payload)
		if err == nil {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), art)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Scan the QR code with the mobile app.")
			return nil
		}
		app.log.Warn("terminal qr render failed, writing png", "error", err)
	}

	png, err := app.logins.QRCode(ctx, tempID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(qrFile, png, 0o600); err != nil {
		return fmt.Errorf("write qr png: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "QR code written to %s. Scan it with the mobile app.\n", qrFile)
	return nil
}
