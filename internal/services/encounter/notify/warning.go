package notify

import (
	apperrors "github.com/JakeHR99/Stryder-TTRPG/internal/platform/errors"
	"github.com/JakeHR99/Stryder-TTRPG/internal/platform/errors/i18n"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/command"
)

// Warning builds the notification for a rejected command, addressed to the
// intent that issued it. The message comes from the errors catalog of
// locale; the rejection's own message is used when the code is unknown.
func Warning(encounterID, replyTo string, rejection command.Rejection, locale string) Notification {
	message := i18n.GetCatalog(locale).Format(rejection.Code, rejection.Metadata)
	if message == rejection.Code && rejection.Message != "" {
		message = rejection.Message
	}
	return Notification{
		Kind:        KindWarning,
		EncounterID: encounterID,
		ReplyTo:     replyTo,
		Code:        rejection.Code,
		Message:     message,
		Metadata:    rejection.Metadata,
	}
}

// WarningFromError builds a warning for an error that never reached the
// decider, such as an invalid payload or token.
func WarningFromError(encounterID, replyTo string, err error, locale string) Notification {
	code := apperrors.CodeOf(err)
	metadata := map[string]string{}
	var coded *apperrors.Error
	if apperrors.As(err, &coded) && coded.Metadata != nil {
		metadata = coded.Metadata
	}
	return Warning(encounterID, replyTo, command.Rejection{
		Code:     string(code),
		Message:  err.Error(),
		Metadata: metadata,
	}, locale)
}
