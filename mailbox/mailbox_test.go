package mailbox

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

// loopback pairs a Box's read side with a hand-rolled responder over an
// in-memory net.Pipe, mirroring the teacher's loopback-connection-pair test
// idiom (muxer_test.go) rather than spinning up a real listener.
func loopback(t *testing.T) (*Box, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	return New(client), server
}

type pingReq struct{ N int }
type pingRsp struct{ N int }

func TestProcessMsgRoundTrip(t *testing.T) {
	box, server := loopback(t)
	defer server.Close()

	done := make(chan error, 1)
	go func() {
		id, txn, _, err := readFramed(server, reqSig, &pingReq{})
		if err != nil {
			done <- err
			return
		}
		done <- writeFramed(server, rspSig, id, txn, 0, pingRsp{N: 7})
	}()

	msg, err := box.AllocMsg("ping", pingReq{N: 3})
	require.NoError(t, err)

	var rsp pingRsp
	_, err = msg.ProcessMsg(&rsp)
	require.NoError(t, err)
	require.Equal(t, 7, rsp.N)
	require.NoError(t, <-done)
}

func TestAllocMsgRejectsConcurrentTransaction(t *testing.T) {
	box, server := loopback(t)
	defer server.Close()

	_, err := box.AllocMsg("first", pingReq{})
	require.NoError(t, err)

	_, err = box.AllocMsg("second", pingReq{})
	require.Error(t, err)
}
