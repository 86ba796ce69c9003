package definition

import (
	"reflect"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})
