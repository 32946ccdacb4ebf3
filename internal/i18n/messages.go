package i18n

import "golang.org/x/text/language"

// Message keys used by the mailer.
const (
	MailSubjectActivationRequest = "mail_subject_account_activation_request"
	MailSubjectRegister          = "mail_subject_register"
	MailSubjectTest              = "mail_subject_test"
	MailBodyActivationRequest    = "mail_body_account_activation_request"
	MailBodyActivated            = "mail_body_account_activated"
	MailBodyTest                 = "mail_body_test"
	MailBodyIssueAdded           = "mail_body_issue_added"
	MailBodyIssueClosed          = "mail_body_issue_closed"
	LabelLogin                   = "label_login"
	LabelAuthor                  = "field_author"
	LabelAssignee                = "field_assigned_to"
	LabelStatus                  = "field_status"
	LabelNotes                   = "field_notes"
	MailFooter                   = "mail_footer"
	LabelAnonymous               = "label_user_anonymous"
)

var bundled = map[language.Tag]map[string]string{
	language.English: {
		MailSubjectActivationRequest: "%s account activation request",
		MailSubjectRegister:          "Your %s account activation",
		MailSubjectTest:              "%s test",
		MailBodyActivationRequest:    "A new user (%s) has registered. The account is pending your approval:",
		MailBodyActivated:            "Your account has been activated. You can now log in.",
		MailBodyTest:                 "This is a test email sent by %s.",
		MailBodyIssueAdded:           "Issue #%s has been reported by %s.",
		MailBodyIssueClosed:          "Issue #%s has been closed by %s.",
		LabelLogin:                   "Login",
		LabelAuthor:                  "Author",
		LabelAssignee:                "Assignee",
		LabelStatus:                  "Status",
		LabelNotes:                   "Notes",
		MailFooter:                   "You have received this notification because you are involved in %s.",
		LabelAnonymous:               "Anonymous",
	},
	language.German: {
		MailSubjectActivationRequest: "%s: Aktivierungsanfrage für ein Konto",
		MailSubjectRegister:          "Ihr %s-Konto wurde aktiviert",
		MailSubjectTest:              "%s Test",
		MailBodyActivationRequest:    "Ein neuer Benutzer (%s) hat sich registriert. Das Konto wartet auf Ihre Freigabe:",
		MailBodyActivated:            "Ihr Konto wurde aktiviert. Sie können sich jetzt anmelden.",
		MailBodyTest:                 "Dies ist eine Test-E-Mail von %s.",
		MailBodyIssueAdded:           "Ticket #%s wurde von %s angelegt.",
		MailBodyIssueClosed:          "Ticket #%s wurde von %s geschlossen.",
		LabelLogin:                   "Anmelden",
		LabelAuthor:                  "Autor",
		LabelAssignee:                "Zugewiesen an",
		LabelStatus:                  "Status",
		LabelNotes:                   "Kommentar",
		MailFooter:                   "Sie erhalten diese Benachrichtigung, weil Sie an %s beteiligt sind.",
		LabelAnonymous:               "Anonym",
	},
	language.French: {
		MailSubjectActivationRequest: "Demande d'activation d'un compte %s",
		MailSubjectRegister:          "Activation de votre compte %s",
		MailSubjectTest:              "Test %s",
		MailBodyActivationRequest:    "Un nouvel utilisateur (%s) s'est inscrit. Son compte nécessite votre approbation :",
		MailBodyActivated:            "Votre compte a été activé. Vous pouvez à présent vous connecter.",
		MailBodyTest:                 "Ceci est un email de test envoyé par %s.",
		MailBodyIssueAdded:           "La demande #%s a été créée par %s.",
		MailBodyIssueClosed:          "La demande #%s a été fermée par %s.",
		LabelLogin:                   "Connexion",
		LabelAuthor:                  "Auteur",
		LabelAssignee:                "Assigné à",
		LabelStatus:                  "Statut",
		LabelNotes:                   "Notes",
		MailFooter:                   "Vous recevez cette notification car vous participez à %s.",
		LabelAnonymous:               "Anonyme",
	},
	language.Russian: {
		MailSubjectActivationRequest: "%s: Запрос на активацию пользователя",
		MailSubjectRegister:          "Активация учетной записи %s",
		MailSubjectTest:              "%s: тестовое письмо",
		MailBodyActivationRequest:    "Зарегистрирован новый пользователь (%s). Учетная запись ожидает вашего утверждения:",
		MailBodyActivated:            "Ваша учетная запись активирована. Вы можете войти.",
		MailBodyTest:                 "Это тестовое письмо, отправленное %s.",
		MailBodyIssueAdded:           "Задача #%s создана пользователем %s.",
		MailBodyIssueClosed:          "Задача #%s закрыта пользователем %s.",
		LabelLogin:                   "Вход",
		LabelAuthor:                  "Автор",
		LabelAssignee:                "Назначена",
		LabelStatus:                  "Статус",
		LabelNotes:                   "Примечания",
		MailFooter:                   "Вы получили это уведомление, потому что участвуете в %s.",
		LabelAnonymous:               "Аноним",
	},
}
