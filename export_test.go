package contactkit

// SetRecordHook installs fn to run before each record is verified.
func SetRecordHook(v *Verifier, fn func(Record)) {
	v.recordHook = fn
}

var DispatchOrder = dispatchOrder
