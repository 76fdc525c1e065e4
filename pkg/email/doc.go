// Package email sends transactional e-mails through a provider-agnostic
// EmailSender.
//
// Implementations:
//   - NewPostmarkClient delivers through Postmark.
//   - NewDevSender writes every message to a directory as HTML plus JSON
//     metadata.
//   - NewLogSender only logs. It is what New returns when no provider
//     token is configured, so a missing token never breaks a flow.
//
// Every implementation validates SendEmailParams first and reports
// ErrInvalidParams for a bad message.
//
//	sender, err := email.New(cfg, log)
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   "user@example.com",
//		Subject:  "Reset Your Password",
//		BodyHTML: html,
//		Tag:      "password-reset",
//	})
//
// HTML bodies are built with the templates subpackage.
package email
