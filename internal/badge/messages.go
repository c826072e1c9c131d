package badge

// Translation keys. They are the English source strings.
const (
	msgRiskLevel     = "%riskLevel% Risk"
	msgUnknown       = "Unknown"
	msgScanning      = "Scanning Risk"
	msgAttribution   = "Risk scan results are provided by a third party"
	msgDisclaimer    = "It is a tool for indicative purposes only to allow users to check the reference risk level of a BNB Chain Smart Contract. Please do your own research - interactions with any BNB Chain Smart Contract is at your own risk."
	msgLearnMore     = "Learn more about risk rating"
	msgHere          = "here."
	msgRetryFailed   = "Risk scanning failed."
	msgRetryPossible = "Press the button to retry."
)

const (
	ProviderName    = "AvengerDAO"
	ProviderURL     = "https://www.avengerdao.org"
	RiskBandDocsURL = "https://www.avengerdao.org/docs/meter/consumer-api/RiskBand"
)
