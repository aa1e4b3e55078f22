package accounts

import "github.com/cleared-dev/tally/internal/model"

// DefaultChart returns the default chart of accounts for an entity type.
func DefaultChart(entityType string) []model.Account {
	switch entityType {
	case "corporation":
		return corporationChart()
	default:
		return corporationChart()
	}
}

func corporationChart() []model.Account {
	asset := func(code, name, cat string) model.Account {
		return model.Account{Code: code, Name: name, Type: model.AccountTypeAsset, Category: cat}
	}
	liability := func(code, name, cat string) model.Account {
		return model.Account{Code: code, Name: name, Type: model.AccountTypeLiability, Category: cat}
	}
	expense := func(code, name, cat string) model.Account {
		return model.Account{Code: code, Name: name, Type: model.AccountTypeExpense, Category: cat}
	}

	return []model.Account{
		asset("1000", "Bank - chequing", "Bank"),
		asset("1035", "Savings account", "Bank"),
		asset("1210", "Accounts receivable", "Receivables"),
		asset("1857", "Computer software", "Capital assets"),
		liability("2100", "Accounts payable", "Payables"),
		liability("2101", "RBC MC", "Credit cards"),
		liability("2102", "RBC Visa", "Credit cards"),
		liability("2170", "GST Installments", "Taxes"),
		liability("2300", "Income tax deductions", "Payroll"),
		liability("2650", "Shareholder loan #1 -personal", "Shareholder"),
		liability("2652", "Shareholder loan #2 -withdrawals/transfers", "Shareholder"),
		liability("2654", "Shareholder loan #3 - CC payments", "Shareholder"),
		liability("2710", "Bank loan #1", "Loans"),
		liability("2712", "Bank loan #2", "Loans"),
		{Code: "3000", Name: "Share capital - common", Type: model.AccountTypeEquity, Category: "Equity"},
		{Code: "3640", Name: "Dividends paid-taxable", Type: model.AccountTypeEquity, Category: "Equity"},
		{Code: "4001", Name: "Sales", Type: model.AccountTypeRevenue, Category: "Revenue"},
		{Code: "4002", Name: "Consulting fees", Type: model.AccountTypeRevenue, Category: "Revenue"},
		{Code: "4860", Name: "Interest income", Type: model.AccountTypeRevenue, Category: "Revenue"},
		expense("5350", "Purchases", "Cost of sales"),
		expense("6000", "Advertising", "Marketing"),
		expense("6415", "Client meals and entertainment", "Meals"),
		expense("6550", "Courier", "Office"),
		expense("6800", "Dues, memberships and subscriptions", "Subscriptions"),
		expense("7400", "Fuel and oil", "Vehicle"),
		expense("7600", "Insurance", "Insurance"),
		expense("7700", "Interest and bank charges", "Bank charges"),
		expense("7890", "Legal fees", "Professional"),
		expense("8600", "Office supplies and postage", "Office"),
		expense("8700", "Professional fees", "Professional"),
		expense("8720", "Rent", "Occupancy"),
		expense("8800", "Repairs and maintenance", "Repairs"),
		expense("8950", "Subcontracting", "Contractors"),
		expense("9100", "Telephone", "Utilities"),
		expense("9200", "Travel and accomodations", "Travel"),
		expense("9500", "Utilities", "Utilities"),
		expense("9700", "Vehicle", "Vehicle"),
		expense("9750", "Workers compensation", "Payroll"),
		expense("9800", "Wages and benefits", "Payroll"),
		expense(model.SuspenseAccountCode, "Unusual item", "Suspense"),
	}
}
