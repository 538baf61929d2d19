package negotiation

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"voice-negotiator-go/internal/customers"
	"voice-negotiator-go/internal/types"
)

const negotiationPolicy = "Instrucciones para negociación:\n" +
	"1. Si el cliente está dispuesto a negociar, ofrecer opciones de pago con tasas de interés reducidas o plan de pago mensual/trimestral.\n" +
	"2. Si el cliente muestra resistencia a pagar, explicar los efectos de la deuda en su vida crediticia y consecuencias legales si la deuda sigue en mora.\n" +
	"3. Si el cliente está indeciso, sugerir opciones de pago flexibles, destacando los beneficios de cumplir para mejorar su historial crediticio.\n" +
	"Al finalizar la negociación, resume el acuerdo, indicando la tasa de interés, monto, plan de pago (mensual o trimestral) y otros detalles acordados.\n"

// Preamble is the instruction block placed before the customer's words.
// It is empty when no profile is known.
func Preamble(c *types.CustomerProfile) string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("Ten muy presente que tienes que dar toda la información en español, sobre todo los numeros.\n")
	fmt.Fprintf(&b, "Cliente: %s, con deuda de %s, fecha de vencimiento: %s, estado de cuenta: %s.\n",
		c.Name,
		customers.FormatCurrency(c.DebtAmount, language.English, "$"),
		c.DueDate,
		c.AccountStatus,
	)
	b.WriteString(negotiationPolicy)
	return b.String()
}

// ResponsePrompt joins the preamble and the user's text into the single
// message sent to the model.
func ResponsePrompt(c *types.CustomerProfile, userText string) string {
	pre := Preamble(c)
	if pre == "" {
		return userText
	}
	return pre + "\n" + userText
}

// AnalysisPrompt embeds the whole transcript and the latest reply and asks for
// a fixed four-part assessment.
func AnalysisPrompt(latest string, transcript []string) string {
	var b strings.Builder
	b.WriteString("Analiza el sentimiento del texto más reciente en el contexto de la conversación:\n")
	b.WriteString(strings.Join(transcript, "\n"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Texto más reciente: '%s'.\n", latest)
	b.WriteString("Proporciona el análisis en el siguiente formato organizado:\n" +
		"Sentimiento: [positivo, negativo, neutral]\n" +
		"Emoción dominante: [emoción principal, como preocupación, alegría, etc.]\n" +
		"Indicador de negociación: [un número del 1 al 100, donde 1 significa fracaso total en la negociación y 100 significa un éxito completo]\n" +
		"Acuerdos alcanzados:\n" +
		"- [Enumerar en viñetas los acuerdos alcanzados o posibles recomendaciones para la negociación]\n" +
		"Responde en español de manera clara y estructurada.")
	return b.String()
}
