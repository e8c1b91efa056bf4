package process

import (
	"strconv"
	"time"
)

// runSuffix is fixed per test binary so one scenario sees one identifier.
var runSuffix = strconv.FormatInt(time.Now().UnixNano()%1_000_000, 36)
