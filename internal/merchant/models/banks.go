package models

// BankBranch is one row of the bank/branch reference table used to validate
// merchant payout details at registration. The table is fixed reference data
// for downstream reimbursement, not a payment-network integration.
type BankBranch struct {
	BankCode   string `json:"bank_code"`
	BankName   string `json:"bank_name"`
	BranchCode string `json:"branch_code"`
	BranchName string `json:"branch_name"`
	SwiftCode  string `json:"swift_code"`
}

// BankDirectory lists the recognized banks and branches.
var BankDirectory = []BankBranch{
	{BankCode: "7171", BankName: "DBS Bank Ltd", BranchCode: "001", BranchName: "Main Branch", SwiftCode: "DBSSSGSG"},
	{BankCode: "7339", BankName: "OCBC Bank", BranchCode: "501", BranchName: "Tampines Branch", SwiftCode: "OCBCSGSG"},
	{BankCode: "7761", BankName: "UOB Bank", BranchCode: "001", BranchName: "Raffles Place", SwiftCode: "UOVBSGSG"},
	{BankCode: "7091", BankName: "Maybank Singapore", BranchCode: "001", BranchName: "Main Branch", SwiftCode: "MBBESGSG"},
	{BankCode: "7302", BankName: "Standard Chartered Bank", BranchCode: "001", BranchName: "Main Branch", SwiftCode: "SCBLSGSG"},
	{BankCode: "7375", BankName: "HSBC Singapore", BranchCode: "146", BranchName: "Orchard Branch", SwiftCode: "HSBCSGSG"},
	{BankCode: "7171", BankName: "POSB Bank", BranchCode: "081", BranchName: "Toa Payoh Branch", SwiftCode: "DBSSSGSG"},
	{BankCode: "9465", BankName: "Citibank Singapore", BranchCode: "001", BranchName: "Main Branch", SwiftCode: "CITISGSG"},
	{BankCode: "7083", BankName: "RHB Bank Berhad", BranchCode: "001", BranchName: "Main Branch", SwiftCode: "RHBBSGSG"},
	{BankCode: "7012", BankName: "Bank of China Singapore", BranchCode: "001", BranchName: "Main Branch", SwiftCode: "BKCHSGSG"},
}

// ResolveBranch validates bank name, bank code, and branch code against the
// reference table and returns the branch name. Each failure names the first
// field that did not match so registration errors are actionable.
func ResolveBranch(bankName, bankCode, branchCode string) (string, error) {
	var matched []BankBranch
	for _, b := range BankDirectory {
		if b.BankName == bankName {
			matched = append(matched, b)
		}
	}
	if len(matched) == 0 {
		return "", errInvalidBankName
	}
	codeOK := false
	for _, b := range matched {
		if b.BankCode == bankCode {
			codeOK = true
			break
		}
	}
	if !codeOK {
		return "", errInvalidBankCode
	}
	for _, b := range matched {
		if b.BranchCode == branchCode {
			return b.BranchName, nil
		}
	}
	return "", errInvalidBranchCode
}
