package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

const appID = "genlink"

// DeviceID retrieves an ID identifying this machine, hashed with the
// application ID so the raw machine ID is never published.
func DeviceID() string {
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return appID
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}
