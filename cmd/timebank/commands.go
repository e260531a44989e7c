package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/goliatone/go-timebank/command"
	"github.com/goliatone/go-timebank/identity"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
)

// runExpire sweeps tokens whose expiry has passed. It is meant to run from
// cron or a scheduler next to the server.
func runExpire(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("expire", flag.ContinueOnError)
	runtime := runtimeFlags(fs)
	limit := fs.Int("limit", 0, "maximum tokens to deactivate (0 uses ledger.expiry_batch_size)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := WithConfig(ctx, app, *runtime); err != nil {
		return err
	}
	if err := WithPersistence(ctx, app); err != nil {
		return err
	}
	defer app.bunDB.Close()

	if err := WithTimebankService(ctx, app); err != nil {
		return err
	}

	result := &command.ExpireTokensResult{}
	err := app.timebank.Commands().ExpireTokens.Execute(ctx, command.ExpireTokensInput{
		Actor:  types.SystemActor(),
		Limit:  *limit,
		Result: result,
	})
	if err != nil {
		return err
	}
	app.GetLogger("expire").Info("expiry sweep finished",
		"deactivated", len(result.TokenIDs),
		"swept_at", result.SweptAt,
	)
	return nil
}

// runToken prints a bearer credential for a member id. It only needs the
// auth section of the configuration.
func runToken(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	runtime := runtimeFlags(fs)
	user := fs.String("user", "", "member id (uuid) to sign for")
	ttl := fs.Duration("ttl", 0, "credential lifetime (0 uses auth.token_expiration)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return errors.New("token: -user is required")
	}
	userID, err := uuid.Parse(*user)
	if err != nil {
		return fmt.Errorf("token: invalid -user: %w", err)
	}

	if err := WithConfig(ctx, app, *runtime); err != nil {
		return err
	}
	signer, err := identity.NewSigner(app.Config().GetAuth())
	if err != nil {
		return err
	}

	var credential string
	if *ttl > 0 {
		credential, err = signer.SignWithTTL(userID, *ttl)
	} else {
		credential, err = signer.Sign(userID)
	}
	if err != nil {
		return err
	}
	fmt.Println(credential)
	return nil
}
