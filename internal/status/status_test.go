package status_test

import (
	"testing"

	"github.com/escolahub/payments-gateway-go/internal/domain"
	"github.com/escolahub/payments-gateway-go/internal/status"
)

func TestEveryProviderTableIsClosed(t *testing.T) {
	known := map[status.Status]bool{}
	for _, s := range status.All {
		known[s] = true
	}

	for _, provider := range domain.AllProviders {
		table := status.TableFor(string(provider))
		if table == nil {
			t.Errorf("no status table for provider %s", provider)
			continue
		}
		for raw, mapped := range table {
			if !known[mapped] {
				t.Errorf("%s: raw %q maps to %q, outside the enum", provider, raw, mapped)
			}
			if got := status.Normalize(string(provider), raw); got != mapped {
				t.Errorf("Normalize(%s, %q) = %q, want %q", provider, raw, got, mapped)
			}
		}
	}
}

func TestNormalize_Asaas(t *testing.T) {
	cases := []struct {
		raw  string
		want status.Status
	}{
		{"PENDING", status.Pending},
		{"CONFIRMED", status.Confirmed},
		{"RECEIVED", status.Confirmed},
		{"OVERDUE", status.Overdue},
		{"REFUNDED", status.Refunded},
		{"PARTIALLY_REFUNDED", status.PartialRefund},
		{"CHARGEBACK_REQUESTED", status.Chargeback},
		{"CANCELED", status.Cancelled},
		{"AWAITING_RISK_ANALYSIS", status.Processing},
	}
	for _, tc := range cases {
		if got := status.Normalize("asaas", tc.raw); got != tc.want {
			t.Errorf("Normalize(asaas, %q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestNormalize_CaseInsensitive(t *testing.T) {
	// Asaas tables are uppercase; a lowercase raw value must still resolve.
	if got := status.Normalize("asaas", "received"); got != status.Confirmed {
		t.Errorf("Normalize(asaas, received) = %q, want confirmed", got)
	}
	// Mercado Pago tables are lowercase; an uppercase raw value must resolve.
	if got := status.Normalize("mercadopago", "APPROVED"); got != status.Confirmed {
		t.Errorf("Normalize(mercadopago, APPROVED) = %q, want confirmed", got)
	}
}

func TestNormalize_UnknownValuesMapToPending(t *testing.T) {
	if got := status.Normalize("asaas", "SOME_NEW_STATE"); got != status.Pending {
		t.Errorf("unknown raw status = %q, want pending", got)
	}
	if got := status.Normalize("asaas", ""); got != status.Pending {
		t.Errorf("empty raw status = %q, want pending", got)
	}
	if got := status.Normalize("stripe", "succeeded"); got != status.Pending {
		t.Errorf("unknown provider = %q, want pending", got)
	}
}

func TestNormalize_BankBaseSharedByAllBanks(t *testing.T) {
	banks := []string{
		"inter", "bb", "itau", "bradesco", "santander",
		"caixa", "sicredi", "sicoob", "safra", "c6bank",
	}
	for _, bank := range banks {
		if got := status.Normalize(bank, "CONCLUIDA"); got != status.Confirmed {
			t.Errorf("Normalize(%s, CONCLUIDA) = %q, want confirmed", bank, got)
		}
		if got := status.Normalize(bank, "ATIVA"); got != status.Pending {
			t.Errorf("Normalize(%s, ATIVA) = %q, want pending", bank, got)
		}
		if got := status.Normalize(bank, "LIQUIDADO"); got != status.Confirmed {
			t.Errorf("Normalize(%s, LIQUIDADO) = %q, want confirmed", bank, got)
		}
		if got := status.Normalize(bank, "DEVOLVIDO"); got != status.Refunded {
			t.Errorf("Normalize(%s, DEVOLVIDO) = %q, want refunded", bank, got)
		}
	}
}

func TestNormalize_BankOverlaysDoNotLeak(t *testing.T) {
	// Overlay entries apply only to their own bank.
	if got := status.Normalize("c6bank", "EXPIRED"); got != status.Cancelled {
		t.Errorf("Normalize(c6bank, EXPIRED) = %q, want cancelled", got)
	}
	if got := status.Normalize("inter", "EXPIRED"); got != status.Pending {
		t.Errorf("Normalize(inter, EXPIRED) = %q, want pending (not in inter's table)", got)
	}
	if got := status.Normalize("inter", "FALHA_EMISSAO"); got != status.Failed {
		t.Errorf("Normalize(inter, FALHA_EMISSAO) = %q, want failed", got)
	}
	if got := status.Normalize("bb", "NORMAL"); got != status.Pending {
		t.Errorf("Normalize(bb, NORMAL) = %q, want pending", got)
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []status.Status{
		status.Confirmed, status.Refunded, status.PartialRefund,
		status.Cancelled, status.Failed, status.Chargeback,
	}
	for _, s := range terminal {
		if !status.IsTerminal(s) {
			t.Errorf("IsTerminal(%q) = false, want true", s)
		}
	}
	for _, s := range []status.Status{status.Pending, status.Processing, status.Overdue} {
		if status.IsTerminal(s) {
			t.Errorf("IsTerminal(%q) = true, want false", s)
		}
	}
}

func TestIsSuccess(t *testing.T) {
	if !status.IsSuccess(status.Confirmed) {
		t.Error("IsSuccess(confirmed) = false, want true")
	}
	for _, s := range status.All {
		if s != status.Confirmed && status.IsSuccess(s) {
			t.Errorf("IsSuccess(%q) = true, want false", s)
		}
	}
}

func TestTableFor(t *testing.T) {
	if status.TableFor("asaas") == nil {
		t.Error("expected a table for asaas")
	}
	if status.TableFor("stripe") != nil {
		t.Error("expected nil table for unknown provider")
	}
}
