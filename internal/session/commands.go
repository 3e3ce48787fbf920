package session

import (
	"strings"

	"github.com/fotolote/intake-bot-go/internal/util"
)

type command int

const (
	cmdNone command = iota
	cmdStart
	cmdSend
	cmdNext
	cmdStatus
	cmdCancel
	cmdHelp
	cmdYes
	cmdNo
)

var greetings = map[string]struct{}{
	"OI": {}, "OLA": {}, "BOM DIA": {}, "BOA TARDE": {}, "BOA NOITE": {},
}

// parseCommand normalizes the text (trim, uppercase, accents stripped) and
// maps it onto the in-chat command vocabulary.
func parseCommand(text string) command {
	t := strings.ToUpper(strings.TrimSpace(util.StripAccents(text)))

	switch t {
	case "FOTOS":
		return cmdStart
	case "ENVIAR", "UPLOAD":
		return cmdSend
	case "PROXIMO":
		return cmdNext
	case "STATUS":
		return cmdStatus
	case "CANCELAR", "SAIR":
		return cmdCancel
	case "AJUDA", "HELP":
		return cmdHelp
	case "SIM", "S", "YES":
		return cmdYes
	case "NAO", "N", "NO":
		return cmdNo
	}

	if _, ok := greetings[t]; ok {
		return cmdStart
	}

	return cmdNone
}
