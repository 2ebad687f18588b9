package peer

// States, RFC 6733 §5.6.
const (
	Closed           State = "Closed"
	WaitConnAck      State = "Wait-Conn-Ack"
	WaitConnAckElect State = "Wait-Conn-Ack-Elect"
	WaitICEA         State = "Wait-I-CEA"
	WaitReturns      State = "Wait-Returns"
	ROpen            State = "R-Open"
	IOpen            State = "I-Open"
	Closing          State = "Closing"
)

// Events, RFC 6733 §5.6.
const (
	EvStart       Event = "Start"
	EvRConnCER    Event = "R-Conn-CER"
	EvRcvConnAck  Event = "Rcv-Conn-Ack"
	EvRcvConnNack Event = "Rcv-Conn-Nack"
	EvTimeout     Event = "Timeout"
	EvRcvCER      Event = "Rcv-CER"
	EvRcvCEA      Event = "Rcv-CEA"
	EvRcvNonCEA   Event = "Rcv-Non-CEA"
	EvPeerDisc    Event = "Peer-Disc"
	EvRcvDPR      Event = "Rcv-DPR"
	EvRcvDPA      Event = "Rcv-DPA"
	EvWinElection Event = "Win-Election"
	EvSendMessage Event = "Send-Message"
	EvRcvMessage  Event = "Rcv-Message"
	EvRcvDWR      Event = "Rcv-DWR"
	EvRcvDWA      Event = "Rcv-DWA"
	EvStop        Event = "Stop"
)
