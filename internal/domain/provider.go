package domain

// Provedores integrados ao ledger
const (
	ProviderPluggy    = "pluggy"    // agregador bancário
	ProviderPagarme   = "pagarme"   // processador de pagamentos
	ProviderContaAzul = "contaazul" // ERP contábil
	ProviderConvenia  = "convenia"  // folha de pagamento

	// ProviderAuthority identifica eventos internos do fluxo de autoridade
	ProviderAuthority = "authority"
)

// ExternalProviders lista os provedores sincronizáveis, na ordem canônica
var ExternalProviders = []string{
	ProviderPluggy,
	ProviderPagarme,
	ProviderContaAzul,
	ProviderConvenia,
}

func IsExternalProvider(provider string) bool {
	for _, p := range ExternalProviders {
		if p == provider {
			return true
		}
	}
	return false
}
