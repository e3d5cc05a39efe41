// Package notifier sends email notifications through an SMTP relay and
// reports errors with their stack traces by email.
//
// # Basic Usage
//
//	cfg, err := notifier.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := notifier.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result := client.Send(ctx, &notifier.Message{
//		Subject: "Nightly import finished",
//		Body:    "<p>42 records imported.</p>",
//	})
//	if !result.Delivered() {
//		// result.Err is a *notifier.SendError; result.Reason() classifies it.
//	}
//
// # Error Reports
//
//	reporter := notifier.NewExceptionNotifier(client, notifier.WithSubject("[import]"))
//	defer reporter.Recover(ctx)
//
//	if err := run(); err != nil {
//		reporter.Notify(ctx, err, debug.Stack())
//	}
//
// # Configuration
//
// LoadConfig reads MAIL_SERVER_HOST, MAIL_SERVER_PORT,
// DEFAULT_SENDER_EMAIL_ADDRESS, DEFAULT_SENDER_EMAIL_PASSWORD,
// DEFAULT_EMAIL_SUBJECT_PREFIX, DEFAULT_EMAIL_SIGNATURE and
// DEFAULT_EMAIL_RECIPIENTS from the environment and an optional .env file.
// LoadConfigFile reads the same settings from YAML.
//
// # Delivery
//
// Every Send opens its own connection, upgrades it with STARTTLS and
// authenticates when the relay offers those extensions, and closes it before
// returning. There are no retries.
package notifier
