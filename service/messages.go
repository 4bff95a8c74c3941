package service

import "strings"

// Messages are the user-facing strings sent to the Notifier.
type Messages struct {
	StockExceeded string
	AddFailed     string
	RemoveFailed  string
	UpdateFailed  string
}

var DefaultMessages = Messages{
	StockExceeded: "requested quantity exceeds stock",
	AddFailed:     "failed to add product",
	RemoveFailed:  "failed to remove product",
	UpdateFailed:  "failed to update product quantity",
}

var PortugueseMessages = Messages{
	StockExceeded: "Quantidade solicitada fora de estoque",
	AddFailed:     "Erro na adição do produto",
	RemoveFailed:  "Erro na remoção do produto",
	UpdateFailed:  "Erro na alteração de quantidade do produto",
}

// MessagesFor picks the message set for a locale such as "pt-BR".
// Unknown locales get DefaultMessages.
func MessagesFor(locale string) Messages {
	if strings.HasPrefix(strings.ToLower(locale), "pt") {
		return PortugueseMessages
	}
	return DefaultMessages
}
