package catalog

// Version identifies the revision of the built-in catalog. It changes whenever
// a definition's schema version or template changes.
const Version = "2025-10"

func employer() Field {
	return Field{Path: "employer.registration", Source: SourceSubject, Kind: KindIdentifier, Required: true}
}

func worker(required bool) Field {
	return Field{Path: "worker.taxId", Source: "worker_tax_id", Kind: KindIdentifier, Required: required}
}

// builtins returns the fixed event type table.
func builtins() []Definition {
	return []Definition{
		{
			Type:          TypeAdmission,
			Group:         "contract",
			Code:          "S-2200",
			Description:   "Admission of a worker under an employment contract.",
			SchemaVersion: "S-1.2",
			Template: []Field{
				employer(),
				worker(true),
				{Path: "worker.name", Source: "worker_name", Kind: KindString, Required: true},
				{Path: "worker.birthDate", Source: "birth_date", Kind: KindDate, Required: true},
				{Path: "contract.admissionDate", Source: "admission_date", Kind: KindDate, Required: true},
				{Path: "contract.category", Source: "category", Kind: KindCode, Required: true},
				{Path: "contract.jobTitle", Source: "job_title", Kind: KindString},
				{Path: "contract.weeklyHours", Source: "weekly_hours", Kind: KindInteger},
				{Path: "contract.salary.amount", Source: "salary", Kind: KindMoney, Required: true},
				{Path: "contract.salary.unit", Source: "salary_unit", Kind: KindCode, Default: "MONTHLY"},
			},
		},
		{
			Type:          TypeRateChange,
			Group:         "contract",
			Code:          "S-2206",
			Description:   "Change of the contractual pay rate of an active worker.",
			SchemaVersion: "S-1.2",
			Template: []Field{
				employer(),
				worker(true),
				{Path: "change.effectiveDate", Source: "effective_date", Kind: KindDate, Required: true},
				{Path: "change.salary.amount", Source: "salary", Kind: KindMoney, Required: true},
				{Path: "change.salary.unit", Source: "salary_unit", Kind: KindCode, Default: "MONTHLY"},
				{Path: "change.reason", Source: "reason", Kind: KindString},
			},
		},
		{
			Type:          TypeTermination,
			Group:         "contract",
			Code:          "S-2299",
			Description:   "End of an employment contract.",
			SchemaVersion: "S-1.2",
			Template: []Field{
				employer(),
				worker(true),
				{Path: "termination.date", Source: "termination_date", Kind: KindDate, Required: true},
				{Path: "termination.reason", Source: "reason_code", Kind: KindCode, Required: true},
				{Path: "termination.noticeIndemnity", Source: "notice_indemnity", Kind: KindMoney},
			},
		},
		{
			Type:          TypeRemuneration,
			Group:         "payroll",
			Code:          "S-1200",
			Description:   "Monthly remuneration paid to a worker.",
			SchemaVersion: "S-1.1",
			Template: []Field{
				employer(),
				worker(true),
				{Path: "period", Source: "period", Kind: KindPeriod, Required: true},
				{Path: "remuneration.gross", Source: "gross_amount", Kind: KindMoney, Required: true},
				{Path: "remuneration.category", Source: "category", Kind: KindCode, Required: true},
			},
		},
		{
			Type:          TypePeriodicClosure,
			Group:         "payroll",
			Code:          "S-1299",
			Description:   "Closure of the periodic (monthly) payroll events.",
			SchemaVersion: "S-1.1",
			Template: []Field{
				employer(),
				{Path: "period", Source: "period", Kind: KindPeriod, Required: true},
				{Path: "closure.hasRemuneration", Source: "has_remuneration", Kind: KindBool, Default: true},
				{Path: "closure.contactName", Source: "contact_name", Kind: KindString},
			},
		},
		{
			Type:          TypeExclusion,
			Group:         "control",
			Code:          "S-3000",
			Description:   "Exclusion of a previously accepted event.",
			SchemaVersion: "S-1.0",
			Template: []Field{
				employer(),
				worker(false),
				{Path: "exclusion.eventCode", Source: "excluded_event_code", Kind: KindCode, Required: true},
				{Path: "exclusion.receipt", Source: "excluded_receipt", Kind: KindString, Required: true},
			},
		},
	}
}
