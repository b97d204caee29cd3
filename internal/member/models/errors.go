package models

import dErrors "unionhub/pkg/domain-errors"

var errInvalidEmail = dErrors.New(dErrors.CodeValidation, "email address is not valid")
