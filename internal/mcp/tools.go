package mcp

import "github.com/mark3labs/mcp-go/mcp"

// emailArg is shared by every tool: the account the call acts for.
var emailArg = mcp.WithString("email",
	mcp.Description("Account email. Defaults to default_user_email from config."),
)

var dataExportToolDef = mcp.NewTool("data_export",
	mcp.WithDescription("Export the account's medications and migraines as a portable snapshot. "+
		"With path, the snapshot is written to a .json file and a summary is returned; "+
		"without it, the snapshot itself is returned."),
	emailArg,
	mcp.WithString("path",
		mcp.Description("Optional .json file path (must be directly in the exports dir or an allowed path)."),
	),
)

var dataImportToolDef = mcp.NewTool("data_import",
	mcp.WithDescription("Merge a snapshot into the account in one transaction. "+
		"Medications are matched by exact name; a migraine is skipped when one already exists on its date. "+
		"Re-importing the same snapshot adds nothing. Any error imports nothing."),
	emailArg,
	mcp.WithString("path",
		mcp.Description("Snapshot .json file to import. Exactly one of path or snapshot is required."),
	),
	mcp.WithObject("snapshot",
		mcp.Description("Inline snapshot: {user_email, medications[{name}], migraines[{occurred_on, nature, intensity, on_period, medication_name}]}."),
	),
)

var statsOverviewToolDef = mcp.NewTool("stats_overview",
	mcp.WithDescription("Headline counters: total migraines, with/without medication, average intensity, on-period count."),
	emailArg,
)

var statsMonthlyToolDef = mcp.NewTool("stats_monthly",
	mcp.WithDescription("Migraines per month for the last N months ending this month, empty months included."),
	emailArg,
	mcp.WithNumber("months",
		mcp.Description("Window size, 1-24 (default 12)."),
	),
)

var statsWeekdayToolDef = mcp.NewTool("stats_weekday",
	mcp.WithDescription("Migraines per day of week, Sunday (0) to Saturday (6)."),
	emailArg,
)

var statsMedicationToolDef = mcp.NewTool("stats_medication",
	mcp.WithDescription("Migraines per medication, most used first. \"None\" counts migraines without a medication."),
	emailArg,
)

var statsNatureToolDef = mcp.NewTool("stats_nature",
	mcp.WithDescription("Migraines per nature (M, H, strong, weak)."),
	emailArg,
)

var statsIntensityToolDef = mcp.NewTool("stats_intensity",
	mcp.WithDescription("Migraines per intensity level 0-10, with the average over rated migraines."),
	emailArg,
)

var statsYearlyToolDef = mcp.NewTool("stats_yearly",
	mcp.WithDescription("Migraine ids grouped by month for one calendar year."),
	emailArg,
	mcp.WithNumber("year",
		mcp.Description("Calendar year (default: current year)."),
	),
)

var migraineLogToolDef = mcp.NewTool("migraine_log",
	mcp.WithDescription("Log a migraine. The medication is found or created by name."),
	emailArg,
	mcp.WithString("occurred_on",
		mcp.Required(),
		mcp.Description("Date as YYYY-MM-DD."),
	),
	mcp.WithString("nature",
		mcp.Required(),
		mcp.Description("One of: M, H, strong, weak."),
		mcp.Enum("M", "H", "strong", "weak"),
	),
	mcp.WithNumber("intensity",
		mcp.Description("Pain level 0-10."),
	),
	mcp.WithBoolean("on_period",
		mcp.Description("Logged during a menstrual period."),
	),
	mcp.WithString("medication_name",
		mcp.Description("Medication taken, if any."),
	),
)

var medicationAddToolDef = mcp.NewTool("medication_add",
	mcp.WithDescription("Add a medication. Names are unique per account and case-sensitive."),
	emailArg,
	mcp.WithString("name",
		mcp.Required(),
		mcp.Description("Medication name."),
	),
)
