package status

// Per-provider raw-status vocabularies.
//
// PSPs each own a full table. Banks share bankBase and apply an overlay of
// their own quirks, so the effective table for each bank is one flattened
// map built at init.

var asaasTable = map[string]Status{
	"PENDING":                      Pending,
	"AWAITING_RISK_ANALYSIS":       Processing,
	"APPROVED_BY_RISK_ANALYSIS":    Pending,
	"REPROVED_BY_RISK_ANALYSIS":    Failed,
	"CONFIRMED":                    Confirmed,
	"RECEIVED":                     Confirmed,
	"RECEIVED_IN_CASH":             Confirmed,
	"OVERDUE":                      Overdue,
	"REFUND_REQUESTED":             Processing,
	"REFUND_IN_PROGRESS":           Processing,
	"REFUNDED":                     Refunded,
	"PARTIALLY_REFUNDED":           PartialRefund,
	"CHARGEBACK_REQUESTED":         Chargeback,
	"CHARGEBACK_DISPUTE":           Chargeback,
	"AWAITING_CHARGEBACK_REVERSAL": Chargeback,
	"DUNNING_REQUESTED":            Overdue,
	"DUNNING_RECEIVED":             Confirmed,
	"CANCELED":                     Cancelled,
}

var pagbankTable = map[string]Status{
	"WAITING":     Pending,
	"CREATED":     Pending,
	"IN_ANALYSIS": Processing,
	"AUTHORIZED":  Processing,
	"PAID":        Confirmed,
	"AVAILABLE":   Confirmed,
	"DECLINED":    Failed,
	"CANCELED":    Cancelled,
	"REFUNDED":    Refunded,
	"DISPUTED":    Chargeback,
}

var mercadopagoTable = map[string]Status{
	"pending":       Pending,
	"authorized":    Processing,
	"in_process":    Processing,
	"in_mediation":  Processing,
	"approved":      Confirmed,
	"accredited":    Confirmed,
	"rejected":      Failed,
	"cancelled":     Cancelled,
	"expired":       Cancelled,
	"refunded":      Refunded,
	"partially_refunded": PartialRefund,
	"charged_back":  Chargeback,
}

var pagarmeTable = map[string]Status{
	"pending":                    Pending,
	"waiting_payment":            Pending,
	"generated":                  Pending,
	"processing":                 Processing,
	"authorized_pending_capture": Processing,
	"paid":                       Confirmed,
	"overpaid":                   Confirmed,
	"underpaid":                  Confirmed,
	"refunded":                   Refunded,
	"partial_refunded":           PartialRefund,
	"canceled":                   Cancelled,
	"voided":                     Cancelled,
	"expired":                    Overdue,
	"payment_failed":             Failed,
	"failed":                     Failed,
	"with_error":                 Failed,
	"chargedback":                Chargeback,
}

// bankBase covers the vocabularies shared by every bank adapter:
// BACEN PIX "cob" states plus FEBRABAN boleto registration states.
var bankBase = map[string]Status{
	// PIX cob
	"ATIVA":                           Pending,
	"CONCLUIDA":                       Confirmed,
	"REMOVIDA_PELO_USUARIO_RECEBEDOR": Cancelled,
	"REMOVIDA_PELO_PSP":               Cancelled,
	"DEVOLVIDO":                       Refunded,
	"DEVOLUCAO_PARCIAL":               PartialRefund,
	"EM_PROCESSAMENTO":                Processing,
	"NAO_REALIZADO":                   Failed,

	// Boleto
	"REGISTRADO":       Pending,
	"EM_ABERTO":        Pending,
	"EMABERTO":         Pending,
	"A_RECEBER":        Pending,
	"ABERTO":           Pending,
	"PENDENTE":         Pending,
	"VENCIDO":          Overdue,
	"ATRASADO":         Overdue,
	"LIQUIDADO":        Confirmed,
	"PAGO":             Confirmed,
	"RECEBIDO":         Confirmed,
	"MARCADO_RECEBIDO": Confirmed,
	"BAIXADO":          Cancelled,
	"CANCELADO":        Cancelled,
	"EXPIRADO":         Cancelled,
	"REJEITADO":        Failed,
	"FALHA":            Failed,
}

// Per-bank overlays on top of bankBase. Empty overlays are banks whose
// observed vocabulary is fully covered by the base.
var bankOverlays = map[string]map[string]Status{
	"inter": {
		"FALHA_EMISSAO": Failed,
	},
	"bb": {
		"NORMAL":                 Pending,
		"BAIXADO_POR_SOLICITACAO": Cancelled,
		"LIQUIDADO_SEM_REGISTRO": Confirmed,
	},
	"itau": {
		"PAGAMENTO_EFETIVADO": Confirmed,
		"BAIXA_EFETIVADA":     Cancelled,
	},
	"bradesco":  {},
	"santander": {},
	"caixa": {
		"TITULO_BAIXADO": Cancelled,
	},
	"sicredi": {
		"LIQUIDADO_CARTORIO": Confirmed,
	},
	"sicoob": {
		"BAIXADO_PELO_SACADO": Cancelled,
	},
	"safra": {},
	"c6bank": {
		"EXPIRED": Cancelled,
	},
}

// tables holds the flattened effective table per provider identifier.
var tables = map[string]map[string]Status{}

func init() {
	tables["asaas"] = asaasTable
	tables["pagbank"] = pagbankTable
	tables["mercadopago"] = mercadopagoTable
	tables["pagarme"] = pagarmeTable

	for bank, overlay := range bankOverlays {
		tables[bank] = merge(bankBase, overlay)
	}
}

// merge composes base + overlay into a new flattened map. Overlay entries
// win on key collisions.
func merge(base, overlay map[string]Status) map[string]Status {
	out := make(map[string]Status, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
