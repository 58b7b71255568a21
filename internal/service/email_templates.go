package service

import "fmt"

func welcomeEmailTemplate(name, portalURL, appName string) (string, string) {
	subject := fmt.Sprintf("Welcome to %s", appName)
	body := fmt.Sprintf(`Hi %s,

Your account is ready. You can track your property submission and manage your documents here:
%s

If you have questions, reach out to our team.

Best,
The %s Team`, name, portalURL, appName)

	return subject, body
}

func passwordResetEmailTemplate(name, resetURL, appName string) (string, string) {
	subject := fmt.Sprintf("Reset your password for %s", appName)
	body := fmt.Sprintf(`Hi %s,

You requested to reset your password. Use this link to choose a new one:
%s

The link expires soon and can only be used once.

If you didn't request this, you can safely ignore this email. Your password won't be changed.

Best,
The %s Team`, name, resetURL, appName)

	return subject, body
}

func submissionReceivedTemplate(name, address, appName string) (string, string) {
	subject := "We received your property submission"
	body := fmt.Sprintf(`Hi %s,

Thank you for submitting your property at %s. Our team will review it and get back to you shortly.

You will receive another email once the review is complete.

Best,
The %s Team`, name, address, appName)

	return subject, body
}

func reviewDecisionTemplate(name, address, status, notes, appName string) (string, string) {
	var subject, headline string
	switch status {
	case "approved":
		subject = "Your property submission was approved"
		headline = "Good news! Your submission was approved and will be published soon."
	case "changes_requested":
		subject = "Your property submission needs changes"
		headline = "Our team reviewed your submission and needs a few changes before it can move forward."
	case "rejected":
		subject = "Your property submission was not accepted"
		headline = "After review, we are unable to accept this submission."
	default:
		subject = "Update on your property submission"
		headline = "There is an update on your submission."
	}

	body := fmt.Sprintf(`Hi %s,

%s

Property: %s`, name, headline, address)

	if notes != "" {
		body += fmt.Sprintf(`

Reviewer notes:
%s`, notes)
	}

	body += fmt.Sprintf(`

Best,
The %s Team`, appName)

	return subject, body
}
