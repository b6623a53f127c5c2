package render

import (
	"encoding/json"
	"fmt"
	"html"

	"github.com/zenpipeline/archview/pkg/layout"
)

// HTML renders a frame as a self-contained viewer page. The frame is
// embedded as a JSON constant; no external assets are referenced. When
// liveURL is non-empty the page connects to that websocket, replaces the
// embedded frame with streamed ones, and sends pin/move/release messages
// for drag gestures.
func HTML(frame layout.Frame, opts Options, liveURL string) (string, error) {
	opts = opts.withDefaults()

	frameJSON, err := json.Marshal(frame)
	if err != nil {
		return "", fmt.Errorf("marshal frame: %w", err)
	}
	liveJSON, err := json.Marshal(liveURL)
	if err != nil {
		return "", fmt.Errorf("marshal live url: %w", err)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<style>
*{margin:0;padding:0;box-sizing:border-box}
body{background:%s;color:#e2e8f0;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',sans-serif;overflow:hidden}
canvas{display:block;cursor:grab}
canvas.dragging{cursor:grabbing}
#info{position:fixed;top:16px;left:16px;z-index:10;background:rgba(15,23,42,0.9);border:1px solid rgba(100,116,139,0.4);border-radius:10px;padding:12px 16px;font-size:13px}
#info h2{font-size:15px;margin-bottom:6px;color:#38bdf8}
.stat{color:#94a3b8;margin:2px 0}
#empty{position:fixed;inset:0;display:flex;align-items:center;justify-content:center;color:#64748b;font-size:15px}
#legend{position:fixed;bottom:16px;left:16px;z-index:10;background:rgba(15,23,42,0.9);border-radius:10px;padding:10px 14px;font-size:11px;color:#94a3b8}
.dot{width:10px;height:10px;border-radius:50%%;display:inline-block;margin-right:6px;vertical-align:middle}
</style>
</head>
<body>
<div id="info">
  <h2>%s</h2>
  <div class="stat"><span id="n-nodes">0</span> modules, <span id="n-edges">0</span> dependencies</div>
</div>
<div id="legend">
  <div><span class="dot" style="background:%s"></span>health &ge; 90</div>
  <div><span class="dot" style="background:%s"></span>health 80&ndash;89</div>
  <div><span class="dot" style="background:%s"></span>health &lt; 80</div>
</div>
<canvas id="canvas"></canvas>
<script>
"use strict";
let FRAME=%s;
const LIVE_URL=%s;
const NODE_R=%.0f;
const canvas=document.getElementById("canvas");
const ctx=canvas.getContext("2d");

function resize(){canvas.width=window.innerWidth;canvas.height=window.innerHeight;draw();}
window.addEventListener("resize",resize);

function bucketColor(h){if(h>=90)return"%s";if(h>=80)return"%s";return"%s";}

function toScreen(p){
  const sx=canvas.width/FRAME.width, sy=canvas.height/FRAME.height;
  return {x:p.x*sx, y:p.y*sy};
}
function toWorld(x,y){
  return {x:x*FRAME.width/canvas.width, y:y*FRAME.height/canvas.height};
}

function draw(){
  ctx.clearRect(0,0,canvas.width,canvas.height);
  document.getElementById("n-nodes").textContent=FRAME.nodes.length;
  document.getElementById("n-edges").textContent=FRAME.edges.length;
  if(FRAME.nodes.length===0){
    ctx.fillStyle="#64748b";ctx.font="15px sans-serif";ctx.textAlign="center";
    ctx.fillText("No dependency data. Run an analysis to populate the graph.",canvas.width/2,canvas.height/2);
    return;
  }
  ctx.strokeStyle="#64748b";ctx.fillStyle="#64748b";ctx.lineWidth=1.5;
  for(const e of FRAME.edges){
    const a=toScreen({x:e.x1,y:e.y1}), b=toScreen({x:e.x2,y:e.y2});
    ctx.beginPath();ctx.moveTo(a.x,a.y);ctx.lineTo(b.x,b.y);ctx.stroke();
    const ang=Math.atan2(b.y-a.y,b.x-a.x);
    const tipX=b.x-Math.cos(ang)*(NODE_R+4), tipY=b.y-Math.sin(ang)*(NODE_R+4);
    ctx.beginPath();
    ctx.moveTo(tipX,tipY);
    ctx.lineTo(tipX-10*Math.cos(ang-0.4),tipY-10*Math.sin(ang-0.4));
    ctx.lineTo(tipX-10*Math.cos(ang+0.4),tipY-10*Math.sin(ang+0.4));
    ctx.closePath();ctx.fill();
  }
  for(const n of FRAME.nodes){
    const p=toScreen(n);
    ctx.beginPath();ctx.arc(p.x,p.y,NODE_R,0,2*Math.PI);
    ctx.fillStyle=bucketColor(n.health);ctx.fill();
    ctx.strokeStyle="#1e293b";ctx.lineWidth=2;ctx.stroke();
    ctx.fillStyle="#e2e8f0";ctx.font="12px sans-serif";ctx.textAlign="center";
    ctx.fillText(n.name,p.x,p.y+NODE_R+16);
  }
}

let ws=null, dragging=null;
function send(msg){if(ws&&ws.readyState===WebSocket.OPEN)ws.send(JSON.stringify(msg));}

function hit(x,y){
  for(const n of FRAME.nodes){
    const p=toScreen(n);
    if((p.x-x)**2+(p.y-y)**2<=NODE_R*NODE_R)return n;
  }
  return null;
}

canvas.addEventListener("pointerdown",ev=>{
  const n=hit(ev.offsetX,ev.offsetY);
  if(!n)return;
  dragging=n.id;
  canvas.classList.add("dragging");
  const w=toWorld(ev.offsetX,ev.offsetY);
  send({op:"pin",id:n.id,x:w.x,y:w.y});
});
canvas.addEventListener("pointermove",ev=>{
  if(!dragging)return;
  const w=toWorld(ev.offsetX,ev.offsetY);
  send({op:"move",id:dragging,x:w.x,y:w.y});
});
canvas.addEventListener("pointerup",()=>{
  if(!dragging)return;
  send({op:"release",id:dragging});
  dragging=null;
  canvas.classList.remove("dragging");
});

if(LIVE_URL){
  ws=new WebSocket(LIVE_URL);
  ws.onmessage=ev=>{FRAME=JSON.parse(ev.data);draw();};
}
resize();
</script>
</body>
</html>
`,
		html.EscapeString(opts.Title),
		opts.Background,
		html.EscapeString(opts.Title),
		ColorHealthy, ColorWarning, ColorFailing,
		frameJSON, liveJSON,
		opts.NodeRadius,
		ColorHealthy, ColorWarning, ColorFailing,
	), nil
}
