package models

// DefaultTemplate is the content a template code starts with.
type DefaultTemplate struct {
	Code    string
	Channel Channel
	Subject string
	Body    string
}

// DefaultTemplates is created on startup for any code without a template.
var DefaultTemplates = []DefaultTemplate{
	{
		Code:    CodeBMMInvitation,
		Channel: ChannelEmail,
		Subject: "You're invited: {{eventName}}",
		Body: "Kia ora {{name}},\n\nYou are invited to {{eventName}} for {{region}}. " +
			"Please [tell us your preferred venue]({{registrationUrl}}).\n\nMembership number: {{membershipNumber}}",
	},
	{
		Code:    CodeBMMConfirmation,
		Channel: ChannelEmail,
		Subject: "Confirm your attendance: {{eventName}}",
		Body: "Kia ora {{name}},\n\nYour venue is {{venue}} ({{datetime}}). " +
			"Please [confirm your attendance]({{confirmUrl}}).",
	},
	{
		Code:    CodeBMMSpecialVoteLink,
		Channel: ChannelEmail,
		Subject: "Apply for a special vote: {{eventName}}",
		Body: "Kia ora {{name}},\n\nYou told us you cannot attend {{eventName}}. " +
			"You can [apply for a special vote]({{specialVoteUrl}}).",
	},
	{
		Code:    CodeBMMTicket,
		Channel: ChannelEmail,
		Subject: "Your ticket for {{eventName}}",
		Body: "Kia ora {{name}},\n\nYour ticket for {{venue}} ({{datetime}}) is ready. " +
			"[Open your ticket]({{ticketUrl}}) and show the QR code when you arrive.",
	},
	{
		Code:    CodeBMMTicketSMS,
		Channel: ChannelSMS,
		Body:    "{{eventName}}: your ticket for {{venue}} is ready. Show this link at check-in: {{checkinUrl}}",
	},
	{
		Code:    CodeFinancialFormReceipt,
		Channel: ChannelEmail,
		Subject: "We've updated your details",
		Body:    "Kia ora {{name}},\n\nThanks for updating your membership details ({{membershipNumber}}).",
	},
}
