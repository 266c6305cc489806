// conf/defaults.go default values for settings

package conf

import (
	"github.com/spf13/viper"
)

// setDefaultConfig registers the default value of every setting.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")

	v.SetDefault("storage.backend", BackendAWS)
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.maxinflight", 32)
	v.SetDefault("storage.requestspersecond", 0.0)
	v.SetDefault("storage.burst", 0)
	v.SetDefault("storage.upload.partsize", 8*1024*1024)
	v.SetDefault("storage.upload.concurrency", 5)
	v.SetDefault("storage.upload.checksum", true)

	v.SetDefault("storage.minio.endpoint", "localhost:9000")
	v.SetDefault("storage.minio.accesskey", "")
	v.SetDefault("storage.minio.secretkey", "")
	v.SetDefault("storage.minio.region", "")
	v.SetDefault("storage.minio.secure", true)

	v.SetDefault("pipeline.variant", "detection")
	v.SetDefault("pipeline.alignment", "")
	v.SetDefault("pipeline.threshold", 0.50)
	v.SetDefault("pipeline.maxselections", 16)
	v.SetDefault("pipeline.fetchworkers", 8)
	v.SetDefault("pipeline.seed", 0)
	v.SetDefault("pipeline.jobtype", "")
	v.SetDefault("pipeline.codec", "go-json")

	v.SetDefault("ledger.table", "")
	v.SetDefault("ledger.region", "")

	v.SetDefault("metrics.pushgateway", "")
	v.SetDefault("metrics.textfile", "")
}
