package catalog

var awsRegionLocations = map[string]string{
	"us-east-1":      "US East (N. Virginia)",
	"us-east-2":      "US East (Ohio)",
	"us-west-1":      "US West (N. California)",
	"us-west-2":      "US West (Oregon)",
	"af-south-1":     "Africa (Cape Town)",
	"ap-east-1":      "Asia Pacific (Hong Kong)",
	"ap-south-1":     "Asia Pacific (Mumbai)",
	"ap-southeast-1": "Asia Pacific (Singapore)",
	"ap-southeast-2": "Asia Pacific (Sydney)",
	"ap-southeast-3": "Asia Pacific (Jakarta)",
	"ap-northeast-1": "Asia Pacific (Tokyo)",
	"ap-northeast-2": "Asia Pacific (Seoul)",
	"ap-northeast-3": "Asia Pacific (Osaka)",
	"ca-central-1":   "Canada (Central)",
	"eu-central-1":   "Europe (Frankfurt)",
	"eu-west-1":      "Europe (Ireland)",
	"eu-west-2":      "Europe (London)",
	"eu-west-3":      "Europe (Paris)",
	"eu-south-1":     "Europe (Milan)",
	"eu-north-1":     "Europe (Stockholm)",
	"me-south-1":     "Middle East (Bahrain)",
	"sa-east-1":      "South America (Sao Paulo)",
}

var gcpRegionLocations = map[string]string{
	"us-central1":          "US Central (Iowa)",
	"us-east1":             "US East (South Carolina)",
	"us-east4":             "US East (Northern Virginia)",
	"us-west1":             "US West (Oregon)",
	"us-west2":             "US West (Los Angeles)",
	"us-west3":             "US West (Salt Lake City)",
	"us-west4":             "US West (Las Vegas)",
	"europe-west1":         "Europe West (Belgium)",
	"europe-west2":         "Europe West (London)",
	"europe-west3":         "Europe West (Frankfurt)",
	"europe-west4":         "Europe West (Netherlands)",
	"europe-west6":         "Europe West (Zurich)",
	"asia-east1":           "Asia East (Taiwan)",
	"asia-east2":           "Asia East (Hong Kong)",
	"asia-northeast1":      "Asia Northeast (Tokyo)",
	"asia-northeast2":      "Asia Northeast (Osaka)",
	"asia-northeast3":      "Asia Northeast (Seoul)",
	"asia-south1":          "Asia South (Mumbai)",
	"asia-southeast1":      "Asia Southeast (Singapore)",
	"asia-southeast2":      "Asia Southeast (Jakarta)",
	"australia-southeast1": "Australia Southeast (Sydney)",
	"southamerica-east1":   "South America East (Sao Paulo)",
}

// RegionLocation returns the human readable name of a region, or the region
// code itself when it is unknown.
func RegionLocation(p Provider, region string) string {
	var loc string
	switch p {
	case AWS:
		loc = awsRegionLocations[region]
	case GCP:
		loc = gcpRegionLocations[region]
	}
	if loc == "" {
		return region
	}
	return loc
}
