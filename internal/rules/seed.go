package rules

import "github.com/propflow/propflow/internal/model"

// Seed data: the baseline rule set and property catalog loaded by the seed
// command. Operators extend these through YAML rule files.

func fp(v float64) *float64 { return &v }

// mortgageSubcatFilter gates the mortgage property rules to payment-like
// transaction subcategories.
var mortgageSubcatFilter = ConditionSpec{
	Field: "effective_subcategory",
	Regex: "DIRECTDEBIT|OTH|PAYMENT|Direct Debit|Other|Bill Payment",
}

func propertySeeds() []Spec {
	// Mortgage account references first, then rent/expense memo patterns.
	mortgageMap := []struct {
		pattern string
		code    string
	}{
		{`^MORTGAGE EXPRESS\s*001872470.*$|^TOPAZ FIN ROSINCA.*131992707.*$`, "F1321LON"},
		{`^BHAM MIDSHIRES.*20003649652.*$`, "F2321LON"},
		{`^.*907371904.*$|^JASPER.*390255001.*$`, "F3321LON"},
		{`^MORTGAGE EXPRESS\s*001703155.*$|^TOPAZ FIN ROSINCA.*131188407.*$`, "F4321LON"},
		{`^MORTGAGE EXPRESS\s*001996624.*$|^TOPAZ FIN ROSINCA.*132514207.*$`, "F1169FAW"},
		{`^.*907372200.*$|^JASPER.*390255110.*$`, "F2169FAW"},
		{`^BHAM MIDSHIRES.*20000389757.*$`, "F3169FAW"},
		{`^PLATFORM FUNDING\s*01050228957650.*$`, "F68ALH"},
		{`^AMBER HOMELOANS.*480441702.*$|^SKIPTON.*165905969.*$`, "F88ALH"},
	}
	rentExpenseMap := []struct {
		pattern string
		code    string
	}{
		{`.*1[ ]?321.*|.*Soumya.*`, "F1321LON"},
		{`.*2[ ]?321.*|.*CIPRIAN.*`, "F2321LON"},
		{`.*3[ ]?321.*|.*Connacher.*`, "F3321LON"},
		{`.*4[ ]?321.*|.*Kumar.*`, "F4321LON"},
		{`.*169.*171.*`, "169FAW"},
		{`.*1[ ]?169.*|.*SUSAN.*PARKINSON.*`, "F1169FAW"},
		{`.*2[ ]?169.*|.*HAJEK.*`, "F2169FAW"},
		{`.*F6[ ]?8.*|.*6[ ]?8[ ]?ALH.*|.*Elliott.*`, "F68ALH"},
		{`.*F8[ ]?8.*|.*8[ ]?8[ ]?ALH.*|.*FURCZYK.*`, "F88ALH"},
		{`.*321 London Road.*`, "321LON"},
	}

	var specs []Spec
	idx := 0
	for _, m := range mortgageMap {
		idx++
		specs = append(specs, Spec{
			ID:         "prop_mort_" + m.code,
			Phase:      "property",
			OrderIndex: idx,
			Pattern:    m.pattern,
			Strength:   "strong",
			ApplyWhen:  []ConditionSpec{mortgageSubcatFilter},
			Outputs:    OutputsSpec{PropertyCode: m.code},
			Enabled:    true,
		})
	}
	for _, m := range rentExpenseMap {
		idx++
		specs = append(specs, Spec{
			ID:         "prop_rent_" + m.code,
			Phase:      "property",
			OrderIndex: idx,
			Pattern:    m.pattern,
			Strength:   "strong",
			Outputs:    OutputsSpec{PropertyCode: m.code},
			Enabled:    true,
		})
	}
	return specs
}

func categorySeeds() []Spec {
	idx := 0
	add := func(spec Spec) Spec {
		idx++
		spec.Phase = "category"
		spec.OrderIndex = idx
		spec.Enabled = true
		if spec.Strength == "" {
			spec.Strength = "strong"
		}
		return spec
	}

	return []Spec{
		add(Spec{
			ID:      "cat_mortgage_lenders",
			Pattern: `JASPER|TOPAZ|SIBERITE|SKIPTON|MORTGAGE EXPRESS|NRAM|PLATFORM|AMBER|BHAM|CAPITAL|CHL|MORTGAGE TRUST|PARAGON|HESSONITE`,
			Outputs: OutputsSpec{Category: "Mortgage"},
		}),
		add(Spec{
			ID:      "cat_mortgage_sto",
			Pattern: `.*M TUCKER.*STO.*`,
			ApplyWhen: []ConditionSpec{
				{Field: "amount", Min: fp(-200), Max: fp(-190)},
			},
			Outputs: OutputsSpec{Category: "Mortgage"},
		}),
		add(Spec{
			ID:      "cat_beals_rent",
			Pattern: `^BEALS[ ]?ESTATE[ ]?AGENT.*$`,
			Outputs: OutputsSpec{Category: "BealsRent"},
		}),
		add(Spec{
			ID:      "cat_deposit",
			Pattern: `.*DEPOSIT.*|.*TDS.*`,
			ApplyWhen: []ConditionSpec{
				{Field: "effective_subcategory", Regex: "REVENUE|Funds Transfer|Counter Credit|Standing Order|Bill Payment"},
			},
			Outputs: OutputsSpec{Category: "Deposit"},
		}),
		add(Spec{
			ID:       "cat_ourrent_coded",
			Sentinel: "property_assigned",
			ApplyWhen: []ConditionSpec{
				{Field: "effective_subcategory", Regex: "REVENUE"},
			},
			Outputs: OutputsSpec{Category: "OurRent"},
		}),
		add(Spec{
			ID:      "cat_ourrent_tenants",
			Pattern: `.*RENT.*|.*KUMAR.*|.*LINDEMERE.*|.*SEQUENCE UK.*`,
			ApplyWhen: []ConditionSpec{
				{Field: "effective_subcategory", Regex: "Funds Transfer|Counter Credit|Standing Order|Bill Payment"},
			},
			Outputs: OutputsSpec{Category: "OurRent"},
		}),
		add(Spec{
			ID:      "cat_property_expense",
			Pattern: `.*PORTSEA.*|.*BECK.*|.*COURT FEE.*|.*SOUTHERN ELEC.*|.*SSE.*|.*OVO.*`,
			ApplyWhen: []ConditionSpec{
				{Field: "effective_subcategory", Regex: "WORKPLACE|Bill Payment|Funds Transfer|Standing Order"},
			},
			Outputs: OutputsSpec{Category: "PropertyExpense"},
		}),
		add(Spec{
			ID:       "cat_property_expense_repairs",
			Sentinel: "marker",
			ApplyWhen: []ConditionSpec{
				{Field: "effective_subcategory", Regex: "REPAIRS_AND_MAINTENANCE"},
			},
			Outputs: OutputsSpec{Category: "PropertyExpense"},
		}),
		add(Spec{
			ID:      "cat_service_charge",
			Pattern: `23 HAMPSHIRE.*STO|4-6 ALHAMBRA RD CS|12-14 ALHAMBRA RD|16-18 ALHAMBRA RD|ALHAMBRA ROAD MANA`,
			Outputs: OutputsSpec{Category: "ServiceCharge"},
		}),
		add(Spec{
			ID:      "cat_hmrc",
			Pattern: `.*HMRC.*`,
			ApplyWhen: []ConditionSpec{
				{Field: "effective_subcategory", Regex: "^Bill Payment$"},
			},
			Outputs: OutputsSpec{Category: "HMRC"},
		}),
		add(Spec{
			ID:      "cat_regular_payment",
			Pattern: `NATIONWIDE|KINGSTON UNITY|Spotify`,
			ApplyWhen: []ConditionSpec{
				{Field: "effective_subcategory", Regex: "Standing Order|Direct Debit|Card Purchase"},
			},
			Outputs: OutputsSpec{Category: "RegularPayment"},
		}),
		add(Spec{
			ID:       "cat_regular_payment_dd",
			Sentinel: "marker",
			Strength: "medium",
			ApplyWhen: []ConditionSpec{
				{Field: "effective_subcategory", Regex: "^Direct Debit$"},
			},
			Outputs: OutputsSpec{Category: "RegularPayment"},
		}),
		add(Spec{
			ID:       "cat_personal_card",
			Sentinel: "marker",
			ApplyWhen: []ConditionSpec{
				{Field: "effective_subcategory", Regex: ".*Card Purchase.*|.*Card Refund.*"},
			},
			Outputs: OutputsSpec{Category: "PersonalExpense"},
		}),
		add(Spec{
			ID:       "cat_personal_cash",
			Sentinel: "marker",
			ApplyWhen: []ConditionSpec{
				{Field: "effective_subcategory", Regex: "^Cash Withdrawal$"},
			},
			Outputs: OutputsSpec{Category: "PersonalExpense"},
		}),
		add(Spec{
			ID:       "cat_personal_bill",
			Sentinel: "marker",
			Strength: "weak",
			ApplyWhen: []ConditionSpec{
				{Field: "effective_subcategory", Regex: "^Bill Payment$"},
			},
			Outputs: OutputsSpec{Category: "PersonalExpense"},
		}),
		add(Spec{
			ID:       "cat_catchall_income",
			Sentinel: "amount_positive",
			Strength: "catch_all",
			Outputs:  OutputsSpec{Category: "OtherIncome"},
		}),
		add(Spec{
			ID:       "cat_catchall_expense",
			Sentinel: "amount_negative",
			Strength: "catch_all",
			Outputs:  OutputsSpec{Category: "OtherExpense"},
		}),
	}
}

func subcategorySeeds() []Spec {
	idx := 0
	personal := ConditionSpec{Field: "category", Regex: "^PersonalExpense$"}
	add := func(spec Spec) Spec {
		idx++
		spec.Phase = "subcategory"
		spec.OrderIndex = idx
		spec.Enabled = true
		if spec.Strength == "" {
			spec.Strength = "medium"
		}
		spec.ApplyWhen = append([]ConditionSpec{personal}, spec.ApplyWhen...)
		return spec
	}

	return []Spec{
		add(Spec{
			ID:      "subcat_garage",
			Pattern: `^BP[ ].*|.*SHELL.*|.*THE GARAGE.*|.*MORRISONS PETRO.*`,
			Outputs: OutputsSpec{Subcategory: "Garage"},
		}),
		add(Spec{
			ID:      "subcat_tesco",
			Pattern: `.*TESCO.*`,
			Outputs: OutputsSpec{Subcategory: "Tesco"},
		}),
		add(Spec{
			ID:      "subcat_sainsburys",
			Pattern: `.*SAINSBURY.*`,
			Outputs: OutputsSpec{Subcategory: "Sainsburys"},
		}),
		add(Spec{
			ID:      "subcat_waitrose",
			Pattern: `.*WAITROSE.*`,
			Outputs: OutputsSpec{Subcategory: "Waitrose"},
		}),
		add(Spec{
			ID:      "subcat_pharmacy",
			Pattern: `.*BOOTS.*|.*SUPERDRUG.*|.*PHARMACY.*|.*SPECSAVERS.*|.*DENTAL.*`,
			Outputs: OutputsSpec{Subcategory: "Pharmacy/Opticians/Dental"},
		}),
		add(Spec{
			ID:      "subcat_eating_out",
			Pattern: `.*MCDONALDS.*|.*NANDOS.*|.*WAGAMAMA.*|.*PRET.*|.*GREGGS.*|.*PIZZA.*|.*KFC.*`,
			Outputs: OutputsSpec{Subcategory: "EatingOut"},
		}),
		add(Spec{
			ID:      "subcat_coffee",
			Pattern: `.*Costa.*|.*STARBUCKS.*|.*COFFEE.*|.*Espresso.*`,
			Outputs: OutputsSpec{Subcategory: "Coffee"},
		}),
		add(Spec{
			ID:      "subcat_clothing",
			Pattern: `.*NEXT.*|.*PRIMARK.*|.*RIVER[ ]?ISLAND.*|.*ASOS.*|.*Zara.*|.*Nike.*`,
			Outputs: OutputsSpec{Subcategory: "Clothing"},
		}),
		add(Spec{
			ID:      "subcat_household",
			Pattern: `.*WILKO.*|.*B&M.*|.*ARGOS.*|.*DUNELM.*|.*IKEA.*|.*B[ ]?&[ ]?Q.*`,
			Outputs: OutputsSpec{Subcategory: "Household"},
		}),
		add(Spec{
			ID:      "subcat_amazon",
			Pattern: `.*Amazon.*|.*AMZNMktplace.*|.*AMZ.*`,
			Outputs: OutputsSpec{Subcategory: "Amazon"},
		}),
		add(Spec{
			ID:      "subcat_cash",
			Pattern: `.*`,
			ApplyWhen: []ConditionSpec{
				{Field: "effective_subcategory", Regex: ".*CASH.*"},
			},
			Outputs: OutputsSpec{Subcategory: "Cash"},
		}),
		add(Spec{
			ID:       "subcat_catchall_other",
			Sentinel: "catch_all",
			Strength: "catch_all",
			Outputs:  OutputsSpec{Subcategory: "Other"},
		}),
	}
}

func overrideSeeds() []Spec {
	idx := 0
	add := func(id, pattern string, outputs OutputsSpec) Spec {
		idx++
		return Spec{
			ID:         id,
			Phase:      "override",
			OrderIndex: idx,
			Pattern:    pattern,
			Strength:   "strong",
			Outputs:    outputs,
			Enabled:    true,
		}
	}

	return []Spec{
		add("override_sequence", `.*SEQUENCE.*`, OutputsSpec{Category: "PropertyExpense"}),
		add("override_tesco", `.*Tesco.*`, OutputsSpec{Category: "PersonalExpense", Subcategory: "Tesco"}),
		add("override_shell", `.*Shell.*`, OutputsSpec{Category: "PersonalExpense", Subcategory: "Garage"}),
		add("override_boots", `.*BOOTS.*`, OutputsSpec{Category: "PersonalExpense", Subcategory: "Pharmacy/Opticians/Dental"}),
		add("override_interest", `.*INTEREST CHARGED.*`, OutputsSpec{Category: "OtherExpense"}),
		add("override_atm", `.*ATM.*`, OutputsSpec{Category: "PersonalExpense", Subcategory: "Cash"}),
		add("override_waitrose", `.*WAITROSE.*`, OutputsSpec{Category: "PersonalExpense", Subcategory: "Waitrose"}),
		add("override_interbank", `.*Rsa Capital Limite.*`, OutputsSpec{Category: "Interbank"}),
	}
}

// SeedSpecs returns the baseline rule set for all four phases.
func SeedSpecs() []Spec {
	var specs []Spec
	specs = append(specs, propertySeeds()...)
	specs = append(specs, categorySeeds()...)
	specs = append(specs, subcategorySeeds()...)
	specs = append(specs, overrideSeeds()...)
	return specs
}

// SeedProperties returns the baseline property catalog.
func SeedProperties() []model.Property {
	return []model.Property{
		{Code: "321LON", Address: "321 London Road", FreeholdEntity: "V.T. Estates Ltd"},
		{Code: "F1321LON", Address: "Flat 1, 321 London Road", Block: "321 London Road", FreeholdEntity: "V.T. Estates Ltd"},
		{Code: "F2321LON", Address: "Flat 2, 321 London Road", Block: "321 London Road", FreeholdEntity: "V.T. Estates Ltd"},
		{Code: "F3321LON", Address: "Flat 3, 321 London Road", Block: "321 London Road", FreeholdEntity: "V.T. Estates Ltd"},
		{Code: "F4321LON", Address: "Flat 4, 321 London Road", Block: "321 London Road", FreeholdEntity: "V.T. Estates Ltd"},
		{Code: "169FAW", Address: "169 Fawcett Road", Block: "169 Fawcett Road", FreeholdEntity: "V.T. Estates Ltd"},
		{Code: "F1169FAW", Address: "Flat 1, 169 Fawcett Road", Block: "169 Fawcett Road", FreeholdEntity: "V.T. Estates Ltd"},
		{Code: "F2169FAW", Address: "Flat 2, 169 Fawcett Road", Block: "169 Fawcett Road", FreeholdEntity: "V.T. Estates Ltd"},
		{Code: "F3169FAW", Address: "Flat 3, 169 Fawcett Road", Block: "169 Fawcett Road", FreeholdEntity: "V.T. Estates Ltd"},
		{Code: "F68ALH", Address: "Flat 6, 8 Alhambra Road", Block: "8 Alhambra Road", FreeholdEntity: "Alhambra Road Management Ltd"},
		{Code: "F88ALH", Address: "Flat 8, 8 Alhambra Road", Block: "8 Alhambra Road", FreeholdEntity: "Alhambra Road Management Ltd"},
		{Code: "RSA", Address: "RSA Capital Ltd (company costs)"},
	}
}
