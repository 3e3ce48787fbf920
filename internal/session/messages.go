package session

import (
	"fmt"

	"github.com/fotolote/intake-bot-go/internal/model"
)

// User-visible replies. Every failure message tells the user what to do
// next instead of exposing internals.

func msgGreeting(minPhotos int) string {
	return fmt.Sprintf("Favor envie %d fotos e o numero da AS (formato 202XXXXXXX).", minPhotos)
}

func msgHelp(minPhotos int) string {
	return fmt.Sprintf(
		"*Bot de Fotos - Ajuda*\n\n"+
			"*Como usar:*\n"+
			"1. Envie as fotos (minimo %d)\n"+
			"2. Envie a AS no formato 202XXXXXXX (pode ir na legenda de uma foto)\n"+
			"3. Confirme o envio quando o lote estiver completo\n\n"+
			"*Comandos:* ENVIAR, STATUS, CANCELAR, AJUDA",
		minPhotos)
}

func legendStatus(s *model.Session) string {
	if s.Legend != "" {
		return "AS: " + s.Legend
	}
	return "AS: pendente"
}

func msgProgress(s *model.Session, minPhotos int) string {
	remaining := minPhotos - len(s.Photos)
	if remaining > 0 {
		return fmt.Sprintf("Foto %d recebida (%s)\nEnvie mais %d foto(s) para completar o minimo de %d.",
			len(s.Photos), legendStatus(s), remaining, minPhotos)
	}
	return fmt.Sprintf("Foto %d recebida (%s)\nLote com %d fotos! Falta apenas a AS.",
		len(s.Photos), legendStatus(s), len(s.Photos))
}

func msgSummary(s *model.Session) string {
	return fmt.Sprintf("Lote completo!\n- AS: %s\n- Fotos: %d\n\nConfirma o envio? (SIM/NAO)",
		s.Legend, len(s.Photos))
}

func msgConfirmUnusualCode(code string) string {
	return fmt.Sprintf("A AS %s nao parece ser deste ano. Confirma mesmo assim? (SIM/NAO)", code)
}

func msgCodeRegistered(code string) string {
	return fmt.Sprintf("AS %s registrada para o lote!", code)
}

func msgCodeConflict(current, attempted string) string {
	return fmt.Sprintf("Erro: AS diferente detectada!\nLote atual: %s\nAS enviada: %s\n\nUse apenas uma AS por lote.",
		current, attempted)
}

func msgMissingDigits(missing int) string {
	return fmt.Sprintf("AS incompleta: faltam %d digito(s). Use o formato 202XXXXXXX (10 digitos).", missing)
}

const (
	msgTooManyDigits = "AS com digitos demais. Use o formato 202XXXXXXX (10 digitos)."
	msgWrongPrefix   = "AS invalida: deve comecar com 202."

	msgAskCorrectCode = "Ok, AS descartada. Envie a AS correta no formato 202XXXXXXX."
	msgAskYesNo       = "Responda SIM ou NAO, por favor."

	msgAskAddMore  = "Deseja adicionar mais fotos? (SIM/NAO)"
	msgResume      = "Pode enviar as fotos restantes."
	msgNewBatch    = "Novo lote iniciado. Pode enviar as fotos."
	msgGoodbye     = "Ok! Ate a proxima."
	msgAutoCommit  = "Sem resposta, enviando o lote automaticamente..."
	msgNoBatchYet  = "Nenhum lote ativo."
	msgUncodedAsk  = "Falta o numero da AS!\nEnvie a AS no formato 202XXXXXXX ou digite ENVIAR novamente para salvar sem AS."
	msgRecoDiscard = "Lote anterior descartado."
)

func msgIncomplete(have, minPhotos int) string {
	return fmt.Sprintf("Lote incompleto! Voce tem %d foto(s).\nEnvie mais %d para atingir o minimo de %d.",
		have, minPhotos-have, minPhotos)
}

func msgUploading(photoCount int, legend, destination string) string {
	as := legend
	if as == "" {
		as = "sem AS"
	}
	return fmt.Sprintf("Enviando %d fotos para %s...\nAS: %s", photoCount, destination, as)
}

func msgUploadOK(saved int) string {
	return fmt.Sprintf("Upload concluido com sucesso!\n%d fotos salvas.\n\nDeseja enviar outro lote? (SIM/NAO)", saved)
}

func msgUploadPartial(saved, failed int) string {
	return fmt.Sprintf("Upload parcial:\n- Sucesso: %d\n- Falhas: %d\n\nVerifique a conexao e responda SIM para tentar novamente.",
		saved, failed)
}

func msgStatus(s *model.Session, minPhotos int) string {
	as := s.Legend
	if as == "" {
		as = "nao informada"
	}
	remaining := minPhotos - len(s.Photos)
	faltam := "Lote completo!"
	if remaining > 0 {
		faltam = fmt.Sprintf("%d foto(s)", remaining)
	}
	return fmt.Sprintf("Status do Lote:\n- AS: %s\n- Fotos: %d\n- Duplicadas: %d\n- Faltam: %s",
		as, len(s.Photos), s.DuplicateCount, faltam)
}

func msgCancelled(photoCount int) string {
	return fmt.Sprintf("Lote com %d foto(s) cancelado.", photoCount)
}

func msgReminder(s *model.Session, minPhotos int) string {
	missing := minPhotos - len(s.Photos)
	switch {
	case missing > 0 && s.Legend == "":
		return fmt.Sprintf("Seu lote esta aguardando: faltam %d foto(s) e a AS. Digite CANCELAR para descartar.", missing)
	case missing > 0:
		return fmt.Sprintf("Seu lote esta aguardando: faltam %d foto(s). Digite CANCELAR para descartar.", missing)
	default:
		return "Seu lote esta aguardando a AS. Envie a AS no formato 202XXXXXXX ou digite CANCELAR."
	}
}

func msgRecoveryPrompt(s *model.Session) string {
	as := s.Legend
	if as == "" {
		as = "pendente"
	}
	return fmt.Sprintf("Encontrei um lote pendente de antes da reinicializacao (%d foto(s), AS: %s).\nDeseja continuar? (SIM/NAO)",
		len(s.Photos), as)
}
