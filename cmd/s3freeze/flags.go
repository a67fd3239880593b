package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func logLevelFlag(v *viper.Viper) string {
	return v.GetString("log.level")
}

func addLogLevelFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("log-level", "info", "log level")
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindEnv("log.level", "LOG_LEVEL")
}

func logFormatFlag(v *viper.Viper) string {
	return v.GetString("log.format")
}

func addLogFormatFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("log-format", "console", "log format (console or json)")
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = v.BindEnv("log.format", "LOG_FORMAT")
}

func contentRootFlag(v *viper.Viper) string {
	return v.GetString("site.content_root")
}

func addContentRootFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("content-root", "web/content", "Folder holding the markdown pages")
	_ = v.BindPFlag("site.content_root", flags.Lookup("content-root"))
	_ = v.BindEnv("site.content_root", "S3FREEZE_CONTENT_ROOT")
}

func templatesFlag(v *viper.Viper) []string {
	return v.GetStringSlice("site.templates")
}

func addTemplatesFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.StringSlice("templates", []string{"web/templates"}, "Folders the layout template is loaded from")
	_ = v.BindPFlag("site.templates", flags.Lookup("templates"))
	_ = v.BindEnv("site.templates", "S3FREEZE_TEMPLATES")
}

func staticRootFlag(v *viper.Viper) string {
	return v.GetString("site.static_root")
}

func addStaticRootFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("static-root", "web/static", "Folder served under /static and copied into the export")
	_ = v.BindPFlag("site.static_root", flags.Lookup("static-root"))
	_ = v.BindEnv("site.static_root", "S3FREEZE_STATIC_ROOT")
}

func outputFlag(v *viper.Viper) string {
	return v.GetString("export.output")
}

func addOutputFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.StringP("output", "o", "", "Output directory, wiped on every run (default static_export)")
	_ = v.BindPFlag("export.output", flags.Lookup("output"))
	_ = v.BindEnv("export.output", "S3FREEZE_OUTPUT")
}

func configFlag(v *viper.Viper) string {
	return v.GetString("export.config")
}

func addConfigFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.StringP("config", "c", "", "Exporter config file (.yaml, .yml or .toml)")
	_ = v.BindPFlag("export.config", flags.Lookup("config"))
	_ = v.BindEnv("export.config", "S3FREEZE_CONFIG")
}

func runLogFlag(v *viper.Viper) string {
	return v.GetString("export.run_log")
}

func addRunLogFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("run-log", "", "Where the plain text run log goes (default <output>.log)")
	_ = v.BindPFlag("export.run_log", flags.Lookup("run-log"))
	_ = v.BindEnv("export.run_log", "S3FREEZE_RUN_LOG")
}

func summaryFlag(v *viper.Viper) string {
	return v.GetString("export.summary")
}

func addSummaryFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("summary", "", "If set, the run report is also written here as JSON")
	_ = v.BindPFlag("export.summary", flags.Lookup("summary"))
	_ = v.BindEnv("export.summary", "S3FREEZE_SUMMARY")
}

func metricsFileFlag(v *viper.Viper) string {
	return v.GetString("export.metrics_file")
}

func addMetricsFileFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("metrics-file", "", "If set, run metrics are written here in the prometheus text format")
	_ = v.BindPFlag("export.metrics_file", flags.Lookup("metrics-file"))
	_ = v.BindEnv("export.metrics_file", "S3FREEZE_METRICS_FILE")
}

func strictFlag(v *viper.Viper) bool {
	return v.GetBool("export.strict")
}

func addStrictFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("strict", false, "Exit non zero if the run recorded any error")
	_ = v.BindPFlag("export.strict", flags.Lookup("strict"))
	_ = v.BindEnv("export.strict", "S3FREEZE_STRICT")
}

func watchFlag(v *viper.Viper) bool {
	return v.GetBool("export.watch")
}

func addWatchFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.BoolP("watch", "w", false, "Keep running and re-export when site sources change")
	_ = v.BindPFlag("export.watch", flags.Lookup("watch"))
}

func publishBucketFlag(v *viper.Viper) string {
	return v.GetString("publish.bucket")
}

func addPublishBucketFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("publish-bucket", "", "If set, the export is uploaded to this bucket url (file://, mem://)")
	_ = v.BindPFlag("publish.bucket", flags.Lookup("publish-bucket"))
	_ = v.BindEnv("publish.bucket", "S3FREEZE_PUBLISH_BUCKET")
}

func publishPrefixFlag(v *viper.Viper) string {
	return v.GetString("publish.prefix")
}

func addPublishPrefixFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("publish-prefix", "", "Key prefix for published objects")
	_ = v.BindPFlag("publish.prefix", flags.Lookup("publish-prefix"))
	_ = v.BindEnv("publish.prefix", "S3FREEZE_PUBLISH_PREFIX")
}

func addressFlag(v *viper.Viper) string {
	return v.GetString("address")
}

func addAddressFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("address", ":8080", "Address to bind to (host:port)")
	_ = v.BindPFlag("address", flags.Lookup("address"))
	_ = v.BindEnv("address", "S3FREEZE_ADDRESS")
}
