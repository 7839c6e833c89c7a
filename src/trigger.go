package csi

const DefaultTriggerStreams = 2

// Trigger turns a stability vector into the send / don't send decision.
//
// Streams is how many leading flags must all be set.  Zero means every
// flag.  The usual deployment has one transmit and two receive antennas,
// hence the default of 2.
type Trigger struct {
	Streams int
}

func (t Trigger) Decide(v StabilityVector) bool {
	var need = t.Streams
	if need <= 0 {
		need = len(v)
	}

	if need == 0 || len(v) < need {
		return false
	}

	for _, stable := range v[:need] {
		if !stable {
			return false
		}
	}

	return true
}
