package storage

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/fotolote/intake-bot-go/internal/util"
)

// UncodedBucket is the folder collecting batches committed without a code.
const UncodedBucket = "SEM_AS"

const maxNameLen = 50

// SanitizeName makes a collaborator name safe for file and folder names:
// accents stripped, anything outside [a-zA-Z0-9_-] collapsed to underscores.
func SanitizeName(name string) string {
	if name == "" {
		return "Desconhecido"
	}

	plain := util.StripAccents(name)

	var b strings.Builder
	lastUnderscore := false
	for _, r := range plain {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	out := b.String()
	if len(out) > maxNameLen {
		out = out[:maxNameLen]
	}
	if out == "" || out == "_" {
		return "Desconhecido"
	}
	return out
}

// FormatDate renders DD-MM-YYYY.
func FormatDate(t time.Time) string {
	return t.Format("02-01-2006")
}

// FormatTime renders HHhMM.
func FormatTime(t time.Time) string {
	return t.Format("15h04")
}

// FileName builds {seq:03d}_{date}_{time}_{name}[_{code}].{ext}.
func FileName(seq int, collaboratorName, legend, ext string, now time.Time) string {
	name := SanitizeName(collaboratorName)
	if ext == "" {
		ext = "jpg"
	}
	if legend != "" {
		return fmt.Sprintf("%03d_%s_%s_%s_%s.%s", seq, FormatDate(now), FormatTime(now), name, legend, ext)
	}
	return fmt.Sprintf("%03d_%s_%s_%s.%s", seq, FormatDate(now), FormatTime(now), name, ext)
}

// DestinationFolder is the batch folder relative to the storage root:
// {code}/ for coded batches, SEM_AS/{name}_{date}_{time}/ otherwise.
func DestinationFolder(legend, collaboratorName string, now time.Time) string {
	if legend != "" {
		return legend
	}
	folder := fmt.Sprintf("%s_%s_%s", SanitizeName(collaboratorName), FormatDate(now), FormatTime(now))
	return path.Join(UncodedBucket, folder)
}

// Extension extracts a file extension from a gateway-provided name or mime
// subtype, defaulting to jpg.
func Extension(fileName string) string {
	if i := strings.LastIndexByte(fileName, '.'); i >= 0 && i < len(fileName)-1 {
		return fileName[i+1:]
	}
	return "jpg"
}
